package controller

import (
	"net/http"

	"practiceflow-api/core/config"
	"practiceflow-api/core/controller"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/calendar/dto"
	"practiceflow-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	controller.BaseController
	service service.CalendarService
}

func NewCalendarController(service service.CalendarService) *CalendarController {
	return &CalendarController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// GoogleAuthorize redirects the authenticated user to the provider consent page
// GET /api/v1/private/calendar/google/authorize
func (c *CalendarController) GoogleAuthorize(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	authURL, appErr := c.service.BuildAuthorizationURL(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.Redirect(http.StatusFound, authURL)
}

// GoogleCallback handles the provider redirect after the consent decision.
// It always answers with a redirect to the calendar settings page carrying
// exactly one outcome; whatever went wrong stays in the server logs.
// GET /api/v1/public/calendar/google/callback
func (c *CalendarController) GoogleCallback(ctx echo.Context) error {
	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")
	errParam := ctx.QueryParam("error")

	outcome := c.service.HandleCallback(ctx.Request().Context(), code, state, errParam)

	return ctx.Redirect(http.StatusFound, callbackRedirectURL(outcome))
}

func callbackRedirectURL(outcome string) string {
	base := "/settings/calendar"
	if cfg, ok := config.GetSafe(); ok && cfg.App.PublicBaseURL != "" {
		base = cfg.App.PublicBaseURL + "/settings/calendar"
	}
	return base + "?" + outcome
}

// Disconnect removes the current user's calendar connection
// POST /api/v1/private/calendar/disconnect
func (c *CalendarController) Disconnect(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	if appErr := c.service.Disconnect(ctx.Request().Context(), userID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, dto.DisconnectResponse{Success: true})
}

// GetConnection returns the current user's connection status
// GET /api/v1/private/calendar/connection
func (c *CalendarController) GetConnection(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	status, appErr := c.service.GetConnectionStatus(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, status)
}
