package router

import (
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{controller: controller}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// The callback must stay public: the provider redirects the browser here
	// with no session attached.
	public := v1.Group("/public/calendar")
	public.GET("/google/callback", r.controller.GoogleCallback)

	private := v1.Group("/private/calendar")
	private.Use(mw.AuthMiddleware())
	private.GET("/google/authorize", r.controller.GoogleAuthorize)
	private.POST("/disconnect", r.controller.Disconnect)
	private.GET("/connection", r.controller.GetConnection)
}
