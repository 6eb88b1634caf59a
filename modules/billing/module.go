package billing

import (
	"practiceflow-api/core/cache"
	"practiceflow-api/core/database"
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/billing/controller"
	"practiceflow-api/modules/billing/repository"
	"practiceflow-api/modules/billing/router"
	"practiceflow-api/modules/billing/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache) {
	repo := repository.NewEntitlementRepository(db)
	billingService := service.NewBillingService(repo)
	billingController := controller.NewBillingController(billingService)
	mw := middleware.NewMiddleware()

	router.NewBillingRouter(billingController).Setup(e, mw)
}
