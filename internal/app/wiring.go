package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/maison-parfum/maison/internal/analytics"
	"github.com/maison-parfum/maison/internal/analytics/export"
	analytichttp "github.com/maison-parfum/maison/internal/analytics/http"
	"github.com/maison-parfum/maison/internal/platform/db"
	"github.com/maison-parfum/maison/internal/storefront/client"
	"github.com/maison-parfum/maison/internal/storefront/pgstore"
)

// NewSource builds the storefront source selected by SOURCE_KIND. The
// returned release func closes whatever the source holds open.
func NewSource(ctx context.Context, cfg *Config, logger *slog.Logger, registerer prometheus.Registerer) (analytics.Source, func(), error) {
	switch cfg.SourceKind {
	case SourcePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConn})
		if err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), pool.Close, nil
	case SourceREST, "":
		src, err := client.New(client.Config{
			BaseURL:          cfg.BackendURL,
			Token:            cfg.BackendToken,
			Timeout:          cfg.BackendTimeout,
			Logger:           logger,
			Metrics:          client.NewMetrics(registerer),
			FailureThreshold: cfg.BackendBreakerThreshold,
			OpenTimeout:      cfg.BackendBreakerOpen,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
}

// NewAnalyticsService wires the dashboard service with its Redis memo.
func NewAnalyticsService(cfg *Config, source analytics.Source, redisClient *redis.Client, logger *slog.Logger) *analytics.Service {
	var cache *analytics.Cache
	if redisClient != nil {
		cache = analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	}
	return analytics.NewService(source, cache, analytics.ServiceConfig{
		Location:          cfg.Location(),
		LowStockThreshold: cfg.LowStockThreshold,
		Logger:            logger,
	})
}

// NewPDFExporter returns nil when GOTENBERG_URL is unset, which turns the PDF
// export off.
func NewPDFExporter(cfg *Config) analytichttp.PDFService {
	if cfg == nil || cfg.GotenbergURL == "" {
		return nil
	}
	return &export.PDFExporter{
		Endpoint: cfg.GotenbergURL,
		Client:   &http.Client{Timeout: cfg.AppRequestTimeout},
	}
}

// SeedSchema creates the read-model tables when the postgres source is used.
func SeedSchema(ctx context.Context, source analytics.Source) error {
	store, ok := source.(*pgstore.Store)
	if !ok {
		return nil
	}
	return store.EnsureSchema(ctx)
}
