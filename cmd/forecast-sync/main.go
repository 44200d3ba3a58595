package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/forecast-sync/internal/api/http"
	"github.com/i474232898/forecast-sync/internal/config"
	"github.com/i474232898/forecast-sync/internal/logger"
	"github.com/i474232898/forecast-sync/internal/notify"
	"github.com/i474232898/forecast-sync/internal/prefs"
	"github.com/i474232898/forecast-sync/internal/scheduler"
	"github.com/i474232898/forecast-sync/internal/store"
	"github.com/i474232898/forecast-sync/internal/weather"
	"github.com/i474232898/forecast-sync/internal/weather/providers"
)

const (
	appName      = "forecast-sync"
	syncTaskName = "forecast-sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog := logger.New(cfg.LogLevel, cfg.Env).WithField("app", appName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	forecastStore, err := openStore(cfg, appLog)
	if err != nil {
		appLog.Fatalf("failed to open forecast store: %v", err)
	}
	defer forecastStore.Close()

	prefsStore, closePrefs, err := openPrefs(ctx, cfg)
	if err != nil {
		appLog.Fatalf("failed to open preference store: %v", err)
	}
	defer closePrefs()

	notifier, closeNotifier, err := buildNotifier(cfg, appLog)
	if err != nil {
		appLog.Fatalf("failed to build notifier: %v", err)
	}
	defer closeNotifier()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherConfig{
		APIKey:     cfg.OpenWeatherAPIKey,
		BaseURL:    cfg.OpenWeatherBaseURL,
		Days:       cfg.ForecastDays,
		UTCOffset:  cfg.UTCOffset,
		MaxRetries: cfg.FetchMaxRetries,
	})

	service := weather.NewService(forecastStore, provider, prefsStore, notifier, weather.ServiceConfig{
		DefaultLocation: cfg.Location,
		UTCOffset:       cfg.UTCOffset,
		MinSyncInterval: cfg.MinSyncInterval,
	}, weather.WithLogger(appLog))

	sched := scheduler.New(appLog)
	if err := sched.Register(scheduler.Registration{
		Name:     syncTaskName,
		Interval: cfg.SyncInterval,
		Flex:     cfg.SyncFlex,
		Timeout:  cfg.HTTPTimeout + time.Minute,
		Callback: service.SyncTask,
	}); err != nil {
		appLog.Fatalf("failed to register sync task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Sync right away when nothing from today onwards is stored.
	if n, err := forecastStore.CountFrom(ctx, service.Today()); err != nil || n == 0 {
		go func() {
			if err := sched.RunNow(ctx, syncTaskName); err != nil {
				appLog.Errorf("initial sync failed: %v", err)
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, prefsStore, appLog)

	go func() {
		appLog.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Errorf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Errorf("error during shutdown: %v", err)
	}
}

func openStore(cfg *config.AppConfig, log logger.Logger) (weather.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return store.OpenSQLite(cfg.DatabaseURL, log)
	case config.DriverPostgres:
		return store.OpenPostgres(cfg.DatabaseURL, log)
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openPrefs(ctx context.Context, cfg *config.AppConfig) (prefs.Store, func(), error) {
	defaults := prefs.Defaults{
		Location:             cfg.Location,
		NotificationsEnabled: cfg.NotificationsEnabled,
		Units:                cfg.Units,
	}

	if cfg.RedisURL == "" {
		return prefs.NewMemoryPrefs(defaults), func() {}, nil
	}

	client, err := prefs.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return prefs.NewRedisPrefs(client, appName, defaults), func() { _ = client.Close() }, nil
}

func buildNotifier(cfg *config.AppConfig, log logger.Logger) (weather.Notifier, func(), error) {
	sinks := notify.MultiNotifier{notify.NewLogNotifier(log)}
	closeFn := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, k)
		closeFn = func() {
			if err := k.Close(); err != nil {
				log.Warnf("closing kafka notifier: %v", err)
			}
		}
	}
	return sinks, closeFn, nil
}
