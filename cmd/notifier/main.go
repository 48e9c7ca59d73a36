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

	"github.com/serverwatch/notifier/internal/api"
	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/external"
	"github.com/serverwatch/notifier/internal/middleware"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/repository"
	"github.com/serverwatch/notifier/internal/service"
	"github.com/serverwatch/notifier/internal/storage"
	"github.com/serverwatch/notifier/pkg/config"
	"github.com/serverwatch/notifier/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.NewLogger(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err, nil)
	}

	logger.Info("Starting application", map[string]interface{}{
		"app":           cfg.AppName,
		"debug":         cfg.Debug,
		"port":          cfg.Port,
		"notify_sink":   cfg.NotifySink,
		"poll_interval": cfg.PollInterval.String(),
	})

	// Initialize database
	if err := repository.InitDB(cfg); err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	db := repository.GetDB()
	defer func() {
		if err := repository.GetDBProvider().Close(); err != nil {
			logger.Warn("Failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Initialize Event-Bus with multi-storage (PostgreSQL + InfluxDB)
	dbStorage := events.NewDatabaseEventStorage(db)

	var eventStorage events.EventStorage = dbStorage
	if cfg.InfluxDBURL != "" && cfg.InfluxDBToken != "" {
		influxClient, err := storage.NewInfluxDBClient(storage.InfluxDBConfig{
			URL:    cfg.InfluxDBURL,
			Token:  cfg.InfluxDBToken,
			Org:    cfg.InfluxDBOrg,
			Bucket: cfg.InfluxDBBucket,
		})
		if err != nil {
			logger.Warn("Failed to initialize InfluxDB, falling back to database-only storage", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer influxClient.Close()
			eventStorage = events.NewMultiEventStorage(dbStorage, events.NewInfluxDBEventStorage(influxClient))
			logger.Info("Event-Bus initialized with dual storage (PostgreSQL + InfluxDB)", map[string]interface{}{
				"influxdb_url": cfg.InfluxDBURL,
				"org":          cfg.InfluxDBOrg,
				"bucket":       cfg.InfluxDBBucket,
			})
		}
	} else {
		logger.Info("Event-Bus initialized with database storage only", nil)
	}

	events.SetEventStorage(eventStorage)
	bus := events.GetEventBus()

	// Filter vocabulary
	catalog, err := models.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load catalog", err, map[string]interface{}{"path": cfg.CatalogPath})
	}

	// Subscriptions
	store := service.NewSubscriptionStore(repository.NewSubscriberRepository(db), catalog, bus)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal("Failed to load subscriptions", err, nil)
	}

	// Directory polling
	alerter := service.NewAlertService(cfg.DebugWebhookURL, bus)
	directory := service.NewDirectoryService(
		external.NewBattleBitClient(cfg.ServerListURL, cfg.FetchTimeout),
		alerter,
		bus,
		service.DirectoryConfig{
			RetryCount:    cfg.FetchRetryCount,
			RetryInterval: cfg.FetchRetryInterval,
			FetchTimeout:  cfg.FetchTimeout,
		},
	)

	// Delivery
	matchStream := api.NewMatchStream()
	var dispatcher *service.Dispatcher
	switch cfg.NotifySink {
	case config.SinkStream:
		dispatcher = service.NewDispatcher(matchStream, cfg.DeliveryConcurrency, bus)
	default:
		dispatcher = service.NewBatchDispatcher(
			service.NewWebhookSink(cfg.NotificationWebhookURL, cfg.MapIconsURL),
			cfg.DeliveryConcurrency,
			bus,
		)
	}

	engine := service.NewMatchEngine()
	notifier := service.NewNotifierService(directory, store, engine, dispatcher, cfg.PollInterval)
	notifier.Start()
	logger.Info("Notifier started", map[string]interface{}{
		"server_list_url": cfg.ServerListURL,
		"subscribers":     len(store.Subscribers()),
	})

	// Setup router
	router := api.SetupRouter(
		api.NewFilterHandler(store),
		api.NewServerHandler(notifier, store, engine, bus),
		api.NewHealthHandler(repository.GetDBProvider(), cfg.AppName),
		api.NewPrometheusHandler(),
		matchStream,
		middleware.NewTokenValidator(cfg.APITokenSecret),
		cfg,
	)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", map[string]interface{}{
			"address":      addr,
			"api_endpoint": fmt.Sprintf("http://localhost%s/api", addr),
			"health_check": fmt.Sprintf("http://localhost%s/health", addr),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err, nil)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...", nil)

	// Let an in-flight tick finish so its deliveries are recorded
	notifier.Stop()
	matchStream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", err, nil)
	}

	logger.Info("Shutdown complete", nil)
}
