package controller

import (
	"net/http"

	"practiceflow-api/core/controller"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/utils"
	"practiceflow-api/modules/waitlist/dto"
	"practiceflow-api/modules/waitlist/service"

	"github.com/labstack/echo/v4"
)

type WaitlistController struct {
	controller.BaseController
	service service.WaitlistService
}

func NewWaitlistController(service service.WaitlistService) *WaitlistController {
	return &WaitlistController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// Join adds an email to the waitlist
// POST /api/v1/public/waitlist
func (c *WaitlistController) Join(ctx echo.Context) error {
	requestData := new(dto.JoinWaitlistRequest)
	if err := ctx.Bind(requestData); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	if appErr := c.service.Join(ctx.Request().Context(), requestData.Email, utils.ClientIP(ctx)); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, dto.JoinWaitlistResponse{Success: true})
}
