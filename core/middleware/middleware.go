package middleware

import (
	"net/http"

	"practiceflow-api/core/controller"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user_id"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware resolves the bearer token to an internal user id and stores
// it in the request context. Every private route goes through here; handlers
// never touch the session directly.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "missing or invalid bearer token")
			}

			tokenData, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "invalid or expired token")
			}

			c.Set(userIDContextKey, tokenData.UserID)
			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(userIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
