// The sweeper runs the reminder sweep loop on its own, for deployments
// that keep the API process and the delivery fallback separate. All
// configuration comes from the environment.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/studio-api/internal/config"
	"github.com/jwalitptl/studio-api/internal/email"
	"github.com/jwalitptl/studio-api/internal/repository/postgres"
	dispatchService "github.com/jwalitptl/studio-api/internal/service/dispatch"
	reminderService "github.com/jwalitptl/studio-api/internal/service/reminder"
	internalworker "github.com/jwalitptl/studio-api/internal/worker"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/messaging/redis"
	"github.com/jwalitptl/studio-api/pkg/metrics"
	"github.com/jwalitptl/studio-api/pkg/push"
	"github.com/jwalitptl/studio-api/pkg/scheduler"
	"github.com/jwalitptl/studio-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment")
	}

	appLogger := logger.NewLogger(nil)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid business timezone")
	}
	registry := cfg.Registry()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	destinationRepo := postgres.NewDestinationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("studio_sweeper")

	pushClient := push.NewClient(push.Config{
		GatewayURL: cfg.Push.GatewayURL,
		Timeout:    time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, &appLogger.ZL)
	schedulerClient := scheduler.NewClient(scheduler.Config{
		BaseURL: cfg.Scheduler.BaseURL,
		Timeout: time.Duration(cfg.Scheduler.TimeoutSeconds) * time.Second,
	}, &appLogger.ZL)

	dispatchSvc := dispatchService.NewService(
		destinationRepo, pushClient, broker, email.NewService(cfg.Email),
		registry, validator.New(), m, appLogger)
	reminderSvc := reminderService.NewService(
		appointmentRepo, outboxRepo, schedulerClient, dispatchSvc,
		reminderService.Config{
			Tolerance:       cfg.Reminder.Tolerance(),
			Horizon:         cfg.Reminder.Horizon(),
			CallbackBaseURL: cfg.Scheduler.CallbackBaseURL,
			SigningSecret:   cfg.Scheduler.SigningSecret,
		}, loc, m, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := internalworker.NewSweeper(reminderSvc, cfg.Reminder.SweepInterval(), appLogger)
	sweeper.Start(ctx)
}
