package router

import (
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/billing/controller"

	"github.com/labstack/echo/v4"
)

type BillingRouter struct {
	controller *controller.BillingController
}

func NewBillingRouter(controller *controller.BillingController) *BillingRouter {
	return &BillingRouter{controller: controller}
}

func (r *BillingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// The webhook authenticates by signature, not by session.
	public := v1.Group("/public/billing")
	public.POST("/webhook", r.controller.Webhook)

	private := v1.Group("/private/billing")
	private.Use(mw.AuthMiddleware())
	private.POST("/checkout", r.controller.CreateCheckout)
	private.POST("/portal", r.controller.CreatePortal)
	private.GET("/entitlement", r.controller.GetEntitlement)
}
