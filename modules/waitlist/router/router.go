package router

import (
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/waitlist/controller"

	"github.com/labstack/echo/v4"
)

type WaitlistRouter struct {
	controller *controller.WaitlistController
}

func NewWaitlistRouter(controller *controller.WaitlistController) *WaitlistRouter {
	return &WaitlistRouter{controller: controller}
}

func (r *WaitlistRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	public := v1.Group("/public")
	public.POST("/waitlist", r.controller.Join)
}
