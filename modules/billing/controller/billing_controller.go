package controller

import (
	"io"
	"net/http"

	"practiceflow-api/core/controller"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/billing/dto"
	"practiceflow-api/modules/billing/service"

	"github.com/labstack/echo/v4"
)

type BillingController struct {
	controller.BaseController
	service service.BillingService
}

func NewBillingController(service service.BillingService) *BillingController {
	return &BillingController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// CreateCheckout starts a hosted checkout for the authenticated user
// POST /api/v1/private/billing/checkout
func (c *BillingController) CreateCheckout(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	requestData := new(dto.CreateCheckoutRequest)
	if err := ctx.Bind(requestData); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	session, appErr := c.service.CreateCheckoutSession(ctx.Request().Context(), userID, requestData.PriceID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, session)
}

// Webhook receives signed events from the payment provider
// POST /api/v1/public/billing/webhook
//
// The body is read raw and passed through unmodified: signature verification
// must run over the exact bytes the provider signed, never a re-serialized
// form.
func (c *BillingController) Webhook(ctx echo.Context) error {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "failed to read request body")
	}

	signatureHeader := ctx.Request().Header.Get("Stripe-Signature")

	if appErr := c.service.HandleWebhookEvent(ctx.Request().Context(), rawBody, signatureHeader); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}

// CreatePortal creates a hosted billing-management redirect
// POST /api/v1/private/billing/portal
func (c *BillingController) CreatePortal(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	session, appErr := c.service.CreatePortalSession(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, session)
}

// GetEntitlement returns the caller's current plan tier
// GET /api/v1/private/billing/entitlement
func (c *BillingController) GetEntitlement(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	entitlement, appErr := c.service.GetEntitlement(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return ctx.JSON(http.StatusOK, entitlement)
}
