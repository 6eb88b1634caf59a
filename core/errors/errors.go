package errors

import "fmt"

type ErrorCode string

const (
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	ErrInvalidSignature   ErrorCode = "INVALID_SIGNATURE"
	ErrOAuthExchange      ErrorCode = "OAUTH_EXCHANGE_FAILED"
	ErrPersistence        ErrorCode = "PERSISTENCE_FAILED"
	ErrStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	ErrNoSubscription     ErrorCode = "NO_SUBSCRIPTION"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
)

// AppError is the error type every service returns. Code drives the HTTP
// status mapping in core/controller, Err keeps the underlying cause for logs.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
