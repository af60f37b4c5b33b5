package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/studio-api/internal/config"
	"github.com/jwalitptl/studio-api/internal/email"
	appointmentHandler "github.com/jwalitptl/studio-api/internal/handler/appointment"
	availabilityHandler "github.com/jwalitptl/studio-api/internal/handler/availability"
	destinationHandler "github.com/jwalitptl/studio-api/internal/handler/destination"
	"github.com/jwalitptl/studio-api/internal/handler/health"
	reminderHandler "github.com/jwalitptl/studio-api/internal/handler/reminder"
	reportHandler "github.com/jwalitptl/studio-api/internal/handler/report"
	"github.com/jwalitptl/studio-api/internal/repository/postgres"
	"github.com/jwalitptl/studio-api/internal/router"
	availabilityService "github.com/jwalitptl/studio-api/internal/service/availability"
	bookingService "github.com/jwalitptl/studio-api/internal/service/booking"
	dispatchService "github.com/jwalitptl/studio-api/internal/service/dispatch"
	reminderService "github.com/jwalitptl/studio-api/internal/service/reminder"
	reportService "github.com/jwalitptl/studio-api/internal/service/report"
	internalworker "github.com/jwalitptl/studio-api/internal/worker"
	"github.com/jwalitptl/studio-api/pkg/cache"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/messaging/redis"
	"github.com/jwalitptl/studio-api/pkg/metrics"
	"github.com/jwalitptl/studio-api/pkg/push"
	"github.com/jwalitptl/studio-api/pkg/scheduler"
	"github.com/jwalitptl/studio-api/pkg/validator"
	"github.com/jwalitptl/studio-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid business timezone")
	}
	registry := cfg.Registry()
	if len(registry.List()) == 0 {
		log.Fatal().Msg("no workers configured")
	}

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
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	destinationRepo := postgres.NewDestinationRepository(db)
	expenseRepo := postgres.NewExpenseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("studio")
	v := validator.New()

	schedulerClient := scheduler.NewClient(scheduler.Config{
		BaseURL: cfg.Scheduler.BaseURL,
		Timeout: time.Duration(cfg.Scheduler.TimeoutSeconds) * time.Second,
	}, &appLogger.ZL)
	pushClient := push.NewClient(push.Config{
		GatewayURL: cfg.Push.GatewayURL,
		Timeout:    time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, &appLogger.ZL)
	emailSvc := email.NewService(cfg.Email)

	availabilitySvc := availabilityService.NewService(
		availabilityRepo, appointmentRepo, registry, cache.NewMemory(time.Minute), appLogger)
	dispatchSvc := dispatchService.NewService(
		destinationRepo, pushClient, broker, emailSvc, registry, v, m, appLogger)
	reminderSvc := reminderService.NewService(
		appointmentRepo, outboxRepo, schedulerClient, dispatchSvc,
		reminderService.Config{
			Tolerance:       cfg.Reminder.Tolerance(),
			Horizon:         cfg.Reminder.Horizon(),
			CallbackBaseURL: cfg.Scheduler.CallbackBaseURL,
			SigningSecret:   cfg.Scheduler.SigningSecret,
		}, loc, m, appLogger)
	bookingSvc := bookingService.NewService(
		appointmentRepo, outboxRepo, availabilitySvc, reminderSvc, registry, v, appLogger)
	reportSvc := reportService.NewService(
		appointmentRepo, expenseRepo, registry, v, appLogger)

	healthH := health.NewHandler(map[string]health.Pinger{
		"database": dbPinger{db},
		"redis":    brokerPinger(broker),
	})

	r := router.New(
		router.Config{
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			TriggerSecret: cfg.Scheduler.SigningSecret,
		},
		healthH,
		reminderHandler.NewHandler(reminderSvc),
		appointmentHandler.NewHandler(bookingSvc),
		availabilityHandler.NewHandler(availabilitySvc),
		destinationHandler.NewHandler(dispatchSvc),
		reportHandler.NewHandler(reportSvc),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := internalworker.NewSweeper(reminderSvc, cfg.Reminder.SweepInterval(), appLogger)
	go sweeper.Start(ctx)

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  time.Duration(cfg.Outbox.PollIntervalSeconds) * time.Second,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    time.Duration(cfg.Outbox.RetryDelaySeconds) * time.Second,
	}, appLogger, m)
	go outboxProcessor.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "graceful shutdown failed")
	}
}

type dbPinger struct {
	db *sqlx.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// brokerPinger unwraps the broker's readiness probe when the concrete
// implementation offers one.
func brokerPinger(b interface{}) health.Pinger {
	if p, ok := b.(health.Pinger); ok {
		return p
	}
	return nopPinger{}
}

type nopPinger struct{}

func (nopPinger) Ping(context.Context) error { return nil }
