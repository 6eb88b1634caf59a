package tasks

import (
	"context"

	"practiceflow-api/core/config"
	"practiceflow-api/core/constants"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/calendar/service"

	"github.com/hibiken/asynq"
)

const TypeCalendarRefreshExpiring = "calendar:refresh_expiring"

// Runner owns the background worker and the periodic schedule.
type Runner struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func NewRunner(calendarService service.CalendarService) *Runner {
	cfg := config.Get()
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCalendarRefreshExpiring, func(ctx context.Context, t *asynq.Task) error {
		return calendarService.RefreshExpiringConnections(ctx, constants.TokenRefreshWindow)
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Runner{server: server, scheduler: scheduler, mux: mux}
}

// Start registers the periodic entries and runs the worker until Stop.
func (r *Runner) Start() error {
	if _, err := r.scheduler.Register("*/15 * * * *", asynq.NewTask(TypeCalendarRefreshExpiring, nil)); err != nil {
		return err
	}
	if err := r.scheduler.Start(); err != nil {
		return err
	}

	logger.Info("Tasks:Runner:Started", "concurrency", 2)
	return r.server.Start(r.mux)
}

func (r *Runner) Stop() {
	r.scheduler.Shutdown()
	r.server.Shutdown()
}
