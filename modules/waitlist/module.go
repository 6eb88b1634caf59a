package waitlist

import (
	"practiceflow-api/core/cache"
	"practiceflow-api/core/database"
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/waitlist/controller"
	"practiceflow-api/modules/waitlist/repository"
	"practiceflow-api/modules/waitlist/router"
	"practiceflow-api/modules/waitlist/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache) {
	repo := repository.NewWaitlistRepository(db)
	waitlistService := service.NewWaitlistService(repo, cache)
	waitlistController := controller.NewWaitlistController(waitlistService)
	mw := middleware.NewMiddleware()

	router.NewWaitlistRouter(waitlistController).Setup(e, mw)
}
