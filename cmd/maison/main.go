package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	analytichttp "github.com/maison-parfum/maison/internal/analytics/http"
	"github.com/maison-parfum/maison/internal/app"
	"github.com/maison-parfum/maison/internal/observability"
	"github.com/maison-parfum/maison/internal/platform/cache"
	"github.com/maison-parfum/maison/internal/storefront"
	"github.com/maison-parfum/maison/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	storefront.SetWallClockLocation(cfg.Location())
	metrics := observability.NewMetrics()

	source, release, err := app.NewSource(ctx, cfg, logger, metrics.Registerer())
	if err != nil {
		logger.Error("init storefront source", slog.String("kind", cfg.SourceKind), slog.Any("error", err))
		os.Exit(1)
	}
	defer release()

	var redisClient *redis.Client
	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, dashboards will not be cached", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	analyticsService := app.NewAnalyticsService(cfg, source, redisClient, logger)
	if err := analyticsService.ListenForInvalidation(ctx); err != nil {
		logger.Warn("subscribe cache invalidation", slog.Any("error", err))
	}

	pdf := app.NewPDFExporter(cfg)
	if pinger, ok := pdf.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			logger.Warn("gotenberg unreachable, pdf export will fail until it recovers", slog.Any("error", err))
		}
	}
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, pdf)
	analyticsHandler.WithStoreName(cfg.StoreName)

	inspector := asynq.NewInspector(jobs.RedisClientOpt(redisOpts))
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := app.NewServer(cfg, router)
	if err := app.Serve(ctx, server, logger, 10*time.Second); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
