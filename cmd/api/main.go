package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/propertyhub-backend/api/controllers"
	"github.com/angelmondragon/propertyhub-backend/api/routes"
	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	"github.com/angelmondragon/propertyhub-backend/internal/agencies"
	"github.com/angelmondragon/propertyhub-backend/internal/analytics"
	"github.com/angelmondragon/propertyhub-backend/internal/appointments"
	"github.com/angelmondragon/propertyhub-backend/internal/auth"
	"github.com/angelmondragon/propertyhub-backend/internal/commissions"
	"github.com/angelmondragon/propertyhub-backend/internal/contracts"
	"github.com/angelmondragon/propertyhub-backend/internal/leads"
	"github.com/angelmondragon/propertyhub-backend/internal/notifications"
	"github.com/angelmondragon/propertyhub-backend/internal/offers"
	"github.com/angelmondragon/propertyhub-backend/internal/permissions"
	"github.com/angelmondragon/propertyhub-backend/internal/presentationcards"
	"github.com/angelmondragon/propertyhub-backend/internal/properties"
	"github.com/angelmondragon/propertyhub-backend/internal/propertystaff"
	"github.com/angelmondragon/propertyhub-backend/internal/serviceproviders"
	"github.com/angelmondragon/propertyhub-backend/internal/users"
	"github.com/angelmondragon/propertyhub-backend/pkg/auth/session"
	"github.com/angelmondragon/propertyhub-backend/pkg/bigquery"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/instance"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/metrics"
	"github.com/angelmondragon/propertyhub-backend/pkg/migrate"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/pdf"
	"github.com/angelmondragon/propertyhub-backend/pkg/redis"
	"github.com/angelmondragon/propertyhub-backend/pkg/search"
	"github.com/angelmondragon/propertyhub-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	storageClient, err := storage.NewClient(ctx, cfg.Storage, logg)
	requireResource(ctx, logg, "object storage", err)

	pingers := map[string]controllers.Pinger{
		"db":      dbClient,
		"redis":   redisClient,
		"storage": storageClient,
	}

	var index search.Index
	if cfg.Search.Enabled() {
		index = search.NewMeili(runCtx, cfg.Search, logg)
	} else {
		logg.Warn(ctx, "search engine not configured, listing search falls back to SQL")
	}

	var renderer pdf.Renderer = pdf.NewChromeRenderer(cfg.PDF)

	var analyticsService analytics.Service
	if cfg.GCP.ProjectID != "" {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "error closing bigquery client", err)
			}
		}()
		pingers["bigquery"] = bqClient
		analyticsService, err = analytics.NewService(bqClient, cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.PlatformEventsTable)
		requireResource(ctx, logg, "analytics service", err)
	} else {
		logg.Warn(ctx, "gcp project not configured, analytics dashboard disabled")
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)
	usersRepo := users.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Users:          usersRepo,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	adminRegisterService, err := auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		DB:             dbClient,
		Users:          usersRepo,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "admin register service", err)

	usersService, err := users.NewService(usersRepo, dbClient, sessionManager, cfg.Password)
	requireResource(ctx, logg, "users service", err)

	permissionsService, err := permissions.NewService(permissions.NewRepository(gdb))
	requireResource(ctx, logg, "permissions service", err)

	agenciesService, err := agencies.NewService(agencies.NewRepository(gdb), dbClient, sessionManager, logg)
	requireResource(ctx, logg, "agencies service", err)

	propertiesService, err := properties.NewService(properties.ServiceParams{
		Repo:       properties.NewRepository(gdb),
		Tx:         dbClient,
		Outbox:     outboxService,
		Index:      index,
		Store:      storageClient,
		Logger:     logg,
		PresignTTL: cfg.Storage.UploadURLExpiry,
	})
	requireResource(ctx, logg, "properties service", err)

	staffService, err := propertystaff.NewService(propertystaff.NewRepository(gdb))
	requireResource(ctx, logg, "property staff service", err)

	appointmentsService, err := appointments.NewService(appointments.NewRepository(gdb), dbClient, outboxService)
	requireResource(ctx, logg, "appointments service", err)

	leadsService, err := leads.NewService(leads.NewRepository(gdb), dbClient, outboxService)
	requireResource(ctx, logg, "leads service", err)

	offersService, err := offers.NewService(offers.NewRepository(gdb), dbClient, outboxService)
	requireResource(ctx, logg, "offers service", err)

	commissionsService, err := commissions.NewService(commissions.NewRepository(gdb), outboxService)
	requireResource(ctx, logg, "commissions service", err)

	contractsService, err := contracts.NewService(contracts.NewRepository(gdb), dbClient, outboxService, commissionsService, contracts.Options{
		Renderer: renderer,
		Store:    storageClient,
		Company:  cfg.PDF.CompanyName,
	})
	requireResource(ctx, logg, "contracts service", err)

	accountingService, err := accounting.NewService(accounting.NewRepository(gdb), dbClient, outboxService, renderer, cfg.PDF.CompanyName)
	requireResource(ctx, logg, "accounting service", err)

	cardsService, err := presentationcards.NewService(presentationcards.NewRepository(gdb), dbClient, outboxService, presentationcards.Options{
		Renderer: renderer,
		Store:    storageClient,
		Company:  cfg.PDF.CompanyName,
	})
	requireResource(ctx, logg, "presentation cards service", err)

	providersService, err := serviceproviders.NewService(serviceproviders.NewRepository(gdb), dbClient)
	requireResource(ctx, logg, "service providers service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(gdb))
	requireResource(ctx, logg, "notifications service", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Pingers:        pingers,
		Redis:          redisClient,
		Sessions:       sessionManager,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		Auth:          authService,
		Register:      registerService,
		AdminRegister: adminRegisterService,
		Users:         usersService,
		Permissions:   permissionsService,
		Agencies:      agenciesService,
		Properties:    propertiesService,
		Staff:         staffService,
		Appointments:  appointmentsService,
		Leads:         leadsService,
		Offers:        offersService,
		Contracts:     contractsService,
		Commissions:   commissionsService,
		Accounting:    accountingService,
		Cards:         cardsService,
		Providers:     providersService,
		Notifications: notificationsService,
		Analytics:     analyticsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
		logg.Info(serverCtx, "api server shut down")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
