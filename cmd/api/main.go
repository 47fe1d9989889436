package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/api/handlers"
	"github.com/mexer-app/backend/internal/cache/redis"
	"github.com/mexer-app/backend/internal/export"
	"github.com/mexer-app/backend/internal/matrix"
	"github.com/mexer-app/backend/internal/metrics"
	"github.com/mexer-app/backend/internal/middleware/ratelimit"
	"github.com/mexer-app/backend/internal/middleware/security"
	"github.com/mexer-app/backend/internal/plots"
	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/sankey"
	"github.com/mexer-app/backend/internal/storage"
	"github.com/mexer-app/backend/internal/storage/sqlite"
	"github.com/mexer-app/backend/internal/translator"
	"github.com/mexer-app/backend/pkg/config"
	appLogger "github.com/mexer-app/backend/pkg/logger"
	"github.com/mexer-app/backend/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Mexer API server")

	defaultStore, err := sqlite.NewClient(storage.DefaultStore, cfg.Databases.DefaultPath)
	if err != nil {
		appLogger.Fatal("Failed to open default store", zap.Error(err))
	}
	defer defaultStore.Close()

	if err := defaultStore.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize default schema", zap.Error(err))
	}

	sandboxStore, err := sqlite.NewClient(storage.SandboxStore, cfg.Databases.SandboxPath)
	if err != nil {
		appLogger.Fatal("Failed to open sandbox store", zap.Error(err))
	}
	defer sandboxStore.Close()

	if err := sandboxStore.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize sandbox schema", zap.Error(err))
	}

	stores := storage.Registry{
		storage.DefaultStore: defaultStore,
		storage.SandboxStore: sandboxStore,
	}

	ttl := time.Duration(cfg.Translator.CacheTTLHours) * time.Hour
	translators := map[string]*translator.Translator{
		storage.DefaultStore: translator.New(storage.DefaultStore, defaultStore, ttl),
		storage.SandboxStore: translator.New(storage.SandboxStore, sandboxStore, ttl),
	}

	colors, err := sankey.LoadColors(cfg.Sankey.ColorsPath)
	if err != nil {
		appLogger.Fatal("Failed to load sankey colors", zap.Error(err))
	}

	var plotCache *redis.Client
	if cfg.Redis.Enabled {
		err := retry.Do(context.Background(), retry.Config{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
			Logger:       appLogger.Log,
		}, func() error {
			var err error
			plotCache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			return err
		})
		if err != nil {
			appLogger.Warn("Plot cache unavailable, continuing without it", zap.Error(err))
			plotCache = nil
		} else {
			defer plotCache.Close()
		}
	}

	metrics.Init()

	normalizer := query.NewNormalizer(
		stores,
		translators,
		cfg.Databases.SandboxPrefix,
		storage.DefaultStore,
		storage.SandboxStore,
	)
	assembler := matrix.NewAssembler(stores)
	sankeyBuilder := sankey.NewBuilder(stores, translators, colors)
	xy := plots.NewXY(stores, translators)
	exporter := export.NewExporter(stores, translators)

	plotHandler := handlers.NewPlotHandler(
		normalizer,
		assembler,
		sankeyBuilder,
		xy,
		plotCache,
		time.Duration(cfg.Redis.PlotTTL)*time.Second,
		cfg.History.MaxEntries,
	)
	metaHandler := handlers.NewMetaHandler(translators, storage.DefaultStore)
	historyHandler := handlers.NewHistoryHandler()
	exportHandler := handlers.NewExportHandler(normalizer, exporter)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.Log,
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	api := app.Group("/api/v1")

	api.Post("/plot", limiter.Middleware(), plotHandler.HandlePlot)
	api.Get("/meta/public-datasets", metaHandler.GetPublicDatasets)
	api.Get("/meta/:dimension", metaHandler.GetLabels)
	api.Get("/history", historyHandler.GetHistory)
	api.Post("/history/delete", historyHandler.DeleteEntry)
	api.Post("/export/csv", limiter.Middleware(), exportHandler.HandleCSV)

	api.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
