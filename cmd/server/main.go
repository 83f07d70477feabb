package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/gaming/risk-service/internal/api"
	"github.com/gaming/risk-service/internal/cache"
	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/events"
	"github.com/gaming/risk-service/internal/pkg/logger"
	"github.com/gaming/risk-service/internal/platform"
	"github.com/gaming/risk-service/internal/repository"
	"github.com/gaming/risk-service/internal/review"
	"github.com/gaming/risk-service/internal/telemetry"
)

type eventPublisher interface {
	review.Publisher
	Close() error
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to set up tracing", logger.ErrorField(err))
	}

	// 4. Storage
	pool, err := repository.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", logger.ErrorField(err))
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatal("failed to apply schema", logger.ErrorField(err))
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// 5. Events
	var publisher eventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := events.NewSyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("failed to create kafka producer", logger.ErrorField(err))
		}
		publisher = events.NewPublisher(producer, cfg.Kafka)
	}
	defer publisher.Close()

	// 6. Services
	backend := platform.NewClient(cfg.Platform, log)
	repo := repository.NewAssessmentRepository(pool)
	engine := review.NewEngine(
		backend,
		cache.NewAssessmentCache(redisClient),
		repo,
		publisher,
		cfg.Review,
		cfg.Redis.AssessmentCacheTTL,
		log,
	)

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(cfg.Server.MaxRequestSize))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	api.RegisterRoutes(e, api.NewHandler(engine, backend, repo, log), cfg.Security)

	// 8. Start Server (Graceful Shutdown)
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("shutting down the server", logger.ErrorField(err))
		}
	}()

	log.Info("server started", zap.String("addr", serverAddr), zap.String("platform", cfg.Platform.BaseURL))

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.ErrorField(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", logger.ErrorField(err))
	}

	log.Info("server exited properly")
}
