package controller

import (
	"net/http"
	"time"

	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"

	"github.com/labstack/echo/v4"
)

// Response types
type (
	SuccessResponse struct {
		Status    int       `json:"status"`
		Message   string    `json:"message"`
		Data      any       `json:"data,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	ErrorResponse struct {
		Status    string           `json:"status"`
		Code      errors.ErrorCode `json:"code"`
		Message   string           `json:"message"`
		Timestamp time.Time        `json:"timestamp"`
	}
)

// BaseController provides the response helpers every module controller embeds.
type BaseController interface {
	BadRequest(appErrCode errors.ErrorCode, message string) *echo.HTTPError
	InternalServerError(appErrCode errors.ErrorCode, message string) *echo.HTTPError
	NotFound(appErrCode errors.ErrorCode, message string) *echo.HTTPError
	Unauthorized(appErrCode errors.ErrorCode, message string) *echo.HTTPError
	TooManyRequests(appErrCode errors.ErrorCode, message string) *echo.HTTPError
	SuccessResponse(c echo.Context, data any, message string) error
	ErrorResponse(c echo.Context, err error) error
}

type responseHandler struct{}

func NewBaseController() BaseController {
	return &responseHandler{}
}

func NewSuccessResponse(httpStatusCode int, data any, message string) *SuccessResponse {
	return &SuccessResponse{
		Status:    httpStatusCode,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func NewErrorResponse(httpStatusCode int, appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return echo.NewHTTPError(httpStatusCode, &ErrorResponse{
		Status:    "error",
		Code:      appErrCode,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (h *responseHandler) BadRequest(appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return NewErrorResponse(http.StatusBadRequest, appErrCode, message)
}

func (h *responseHandler) InternalServerError(appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return NewErrorResponse(http.StatusInternalServerError, appErrCode, message)
}

func (h *responseHandler) NotFound(appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return NewErrorResponse(http.StatusNotFound, appErrCode, message)
}

func (h *responseHandler) Unauthorized(appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return NewErrorResponse(http.StatusUnauthorized, appErrCode, message)
}

func (h *responseHandler) TooManyRequests(appErrCode errors.ErrorCode, message string) *echo.HTTPError {
	return NewErrorResponse(http.StatusTooManyRequests, appErrCode, message)
}

func (h *responseHandler) SuccessResponse(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, data, message))
}

// ErrorResponse maps an AppError code to an HTTP status. Internal failure
// detail is logged server-side and never echoed to the caller.
func (h *responseHandler) ErrorResponse(c echo.Context, err error) error {
	httpStatus := http.StatusInternalServerError
	appCode := errors.ErrInternalServer
	msg := "internal server error"

	if ae, ok := err.(*errors.AppError); ok && ae != nil {
		appCode = ae.Code
		switch appCode {
		case errors.ErrInvalidInput, errors.ErrInvalidRequestData, errors.ErrInvalidSignature, errors.ErrNoSubscription:
			httpStatus = http.StatusBadRequest
			msg = ae.Message
		case errors.ErrUnauthorized:
			httpStatus = http.StatusUnauthorized
			msg = ae.Message
		case errors.ErrForbidden:
			httpStatus = http.StatusForbidden
			msg = ae.Message
		case errors.ErrNotFound:
			httpStatus = http.StatusNotFound
			msg = ae.Message
		case errors.ErrAlreadyExists:
			httpStatus = http.StatusConflict
			msg = ae.Message
		case errors.ErrTooManyRequests:
			httpStatus = http.StatusTooManyRequests
			msg = ae.Message
		default:
			// ErrOAuthExchange, ErrPersistence, ErrStoreUnavailable and the rest
			// collapse into a generic failure for the caller.
			httpStatus = http.StatusInternalServerError
		}
	}

	logger.Error("BaseController:ErrorResponse",
		"status", httpStatus,
		"code", appCode,
		"error", err,
	)
	return c.JSON(httpStatus, &ErrorResponse{
		Status:    "error",
		Code:      appCode,
		Message:   msg,
		Timestamp: time.Now(),
	})
}
