package utils

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetTokenFromHeader extracts the bearer token from the Authorization header.
func GetTokenFromHeader(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return token, nil
}

// ClientIP returns the caller address, preferring proxy headers.
func ClientIP(c echo.Context) string {
	return c.RealIP()
}
