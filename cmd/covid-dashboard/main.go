package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/powerman/structlog"

	httpapi "github.com/i474232898/covid-dashboard/internal/api/http"
	"github.com/i474232898/covid-dashboard/internal/config"
	"github.com/i474232898/covid-dashboard/internal/covid"
	"github.com/i474232898/covid-dashboard/internal/covid/sources"
	"github.com/i474232898/covid-dashboard/internal/httpcache"
	"github.com/i474232898/covid-dashboard/internal/population"
	"github.com/i474232898/covid-dashboard/internal/scheduler"
	"github.com/i474232898/covid-dashboard/internal/store"
)

var log = structlog.New(structlog.KeyUnit, "main")

func init() {
	structlog.DefaultLogger.
		SetPrefixKeys(
			structlog.KeyApp, structlog.KeyPID, structlog.KeyLevel, structlog.KeyUnit, structlog.KeyTime,
		).
		SetDefaultKeyvals(
			structlog.KeyApp, filepath.Base(os.Args[0]),
			structlog.KeySource, structlog.Auto,
		).
		SetSuffixKeys(structlog.KeyStack, structlog.KeySource).
		SetKeysFormat(map[string]string{
			structlog.KeyTime:   " %[2]s",
			structlog.KeySource: " %6[2]s",
			structlog.KeyUnit:   " %6[2]s",
		}).SetTimeFormat("15:04:05")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	structlog.DefaultLogger.SetLogLevel(structlog.ParseLevel(cfg.LogLevel))

	pop, err := population.LoadFile(cfg.PopulationFile)
	if err != nil {
		log.Fatal(err, "file", cfg.PopulationFile)
	}

	// Shared HTTP client and response cache for outbound calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	respCache := httpcache.New(cfg.HTTPCacheTTL)

	tracking := sources.NewTrackingSource(sources.HTTPClientConfig{
		Client: httpClient,
		Cache:  respCache,
	}, cfg.TrackingBaseURL)

	projCfg := sources.HTTPClientConfig{Client: httpClient}
	if cfg.CacheProjections {
		projCfg.Cache = respCache
	}
	projections := sources.NewProjectionArchiveSource(projCfg, cfg.ProjectionsURL)

	pipeline := covid.NewPipeline(tracking, pop)
	memStore := store.NewMemoryStore(pipeline.Load, cfg.RefreshTTL)

	// The first load is mandatory; without data there is nothing to serve.
	if err := memStore.RefreshIfStale(context.Background()); err != nil {
		log.Fatal(err)
	}

	service := covid.NewService(memStore, tracking, projections)

	sched := scheduler.New(respCache, cfg.HTTPCacheSweep)
	if err := sched.Start(); err != nil {
		log.Fatal(err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "covid-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(compress.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "covid-dashboard",
			"table":     memStore.Stats(),
			"httpCache": respCache.Len(),
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.PrintErr("fiber server stopped", "err", err)
		}
	}()
	log.Info("listening", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.PrintErr("error during shutdown", "err", err)
	}
}
