package calendar

import (
	"practiceflow-api/core/cache"
	"practiceflow-api/core/database"
	"practiceflow-api/core/middleware"
	"practiceflow-api/modules/calendar/controller"
	"practiceflow-api/modules/calendar/repository"
	"practiceflow-api/modules/calendar/router"
	"practiceflow-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache) {
	repo := repository.NewConnectionRepository(db)
	calendarService := service.NewCalendarService(repo)
	calendarController := controller.NewCalendarController(calendarService)
	mw := middleware.NewMiddleware()

	router.NewCalendarRouter(calendarController).Setup(e, mw)
}

// GetService returns a CalendarService for use by other components (the
// availability collaborator and the background refresh sweep).
func GetService(db database.IDatabase) service.CalendarService {
	repo := repository.NewConnectionRepository(db)
	return service.NewCalendarService(repo)
}
