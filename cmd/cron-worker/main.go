package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	"github.com/angelmondragon/propertyhub-backend/internal/appointments"
	"github.com/angelmondragon/propertyhub-backend/internal/cron"
	"github.com/angelmondragon/propertyhub-backend/internal/notifications"
	"github.com/angelmondragon/propertyhub-backend/internal/offers"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/instance"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/metrics"
	"github.com/angelmondragon/propertyhub-backend/pkg/migrate"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.LockName(cfg.Cron.LockName, cfg.App.Env)), 2*cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	jobNames := make([]string, 0)
	for _, job := range registry.Jobs() {
		jobNames = append(jobNames, job.Name())
	}
	logg.Info(logg.WithField(ctx, "jobs", jobNames), "starting cron worker")

	if cfg.Cron.RunOnce {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron cycle complete")
		return
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (*cron.Registry, error) {
	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	emitter := outbox.NewService(outboxRepo, logg)

	appointmentSvc, err := appointments.NewService(appointments.NewRepository(gdb), dbClient, emitter)
	if err != nil {
		return nil, err
	}
	offerSvc, err := offers.NewService(offers.NewRepository(gdb), dbClient, emitter)
	if err != nil {
		return nil, err
	}

	jobs := []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewAppointmentReminderJob(cron.AppointmentReminderJobParams{
				Logger:       logg,
				Appointments: appointmentSvc,
				LeadTime:     cfg.Cron.ReminderLeadTime,
			})
		},
		func() (cron.Job, error) {
			return cron.NewOfferExpiryJob(cron.OfferExpiryJobParams{Logger: logg, Offers: offerSvc})
		},
		func() (cron.Job, error) {
			return cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
				Logger:     logg,
				DB:         dbClient,
				Repository: notifications.NewRepository(gdb),
				Retention:  cfg.Cron.NotificationRetention,
			})
		},
		func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
				Logger:       logg,
				DB:           dbClient,
				Repository:   outboxRepo,
				Retention:    cfg.Cron.OutboxRetention,
				DeadAttempts: cfg.Cron.OutboxDeadAttempts,
			})
		},
	}
	if cfg.Cron.AutoApproveOnPeriod {
		accountingSvc, err := accounting.NewService(accounting.NewRepository(gdb), dbClient, emitter, nil, cfg.PDF.CompanyName)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, func() (cron.Job, error) {
			return cron.NewCommissionPeriodJob(cron.CommissionPeriodJobParams{Logger: logg, Accounting: accountingSvc})
		})
	}

	registry := cron.NewRegistry()
	for _, build := range jobs {
		job, err := build()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	if err := registry.Select(cfg.Cron.Jobs); err != nil {
		return nil, err
	}
	return registry, nil
}
