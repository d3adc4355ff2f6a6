package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/app"
	"github.com/maison-parfum/maison/internal/notify"
	"github.com/maison-parfum/maison/internal/observability"
	"github.com/maison-parfum/maison/internal/platform/cache"
	"github.com/maison-parfum/maison/internal/storefront"
	"github.com/maison-parfum/maison/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if err := app.SeedSchema(ctx, source); err != nil {
		logger.Error("ensure read-model schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqOpts := jobs.RedisClientOpt(redisOpts)
	jobClient, err := jobs.NewClient(asynqOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = jobClient.Close() }()

	analyticsService := app.NewAnalyticsService(cfg, source, redisClient, logger)
	warmupJob := jobs.NewDashboardWarmupJob(analyticsService, jobs.QueueNotifier{Client: jobClient}, logger, metrics.Jobs)
	deliverJob := &jobs.NotifyDeliverJob{
		Sink:    notify.LogNotifier{Logger: logger.With(slog.String("component", "notify"))},
		Logger:  logger,
		Metrics: metrics.Jobs,
	}

	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynqOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskNotifyDeliver, Handler: deliverJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := app.Serve(ctx, metricsServer, logger, 5*time.Second); err != nil {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
