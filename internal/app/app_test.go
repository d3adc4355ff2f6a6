package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maison-parfum/maison/internal/analytics"
	analytichttp "github.com/maison-parfum/maison/internal/analytics/http"
	"github.com/maison-parfum/maison/internal/observability"
	"github.com/maison-parfum/maison/internal/storefront/client"
	"github.com/maison-parfum/maison/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "s3cret")
	t.Setenv("SOURCE_KIND", "REST")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, SourceREST, cfg.SourceKind)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 10*time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, uint32(5), cfg.BackendBreakerThreshold)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing token":  {"ADMIN_API_TOKEN": ""},
		"unknown source": {"ADMIN_API_TOKEN": "x", "SOURCE_KIND": "mongo"},
		"bad timezone":   {"ADMIN_API_TOKEN": "x", "STORE_TIMEZONE": "Mars/Olympus"},
		"bad threshold":  {"ADMIN_API_TOKEN": "x", "LOW_STOCK_THRESHOLD": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNilConfigLocation(t *testing.T) {
	var cfg *Config
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn", AppEnv: "staging"})
	logger.Info("dropped")
	logger.Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "maison-analytics", entry["service"])
	assert.Equal(t, "staging", entry["env"])
}

type fixedDashboards struct{}

func (fixedDashboards) Dashboard(ctx context.Context, rng analytics.TimeRange) (analytics.Dashboard, error) {
	return analytics.Dashboard{Range: rng}, nil
}

func (fixedDashboards) Invalidate(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	var logs bytes.Buffer
	logger := newLogger(&logs, &Config{})
	cfg := &Config{AdminAPIToken: "s3cret", AppRequestTimeout: 5 * time.Second}
	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analytichttp.NewHandler(logger, fixedDashboards{}, nil),
		JobHandler:       jobs.NewHandler(nil, logger),
		Metrics:          observability.NewMetrics(),
	})
}

func TestRouterPublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `maison_http_requests_total{code="200",route="/healthz"} 1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouterRequiresAdminToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/admin/analytics/dashboard", "/jobs/health"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"), path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterServesDashboard(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics/dashboard?range=month", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Range string `json:"range"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "month", body.Range)

	req = httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	var logs bytes.Buffer
	srv := NewServer(&Config{AppAddr: "127.0.0.1:0"}, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, newLogger(&logs, nil), time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewSourceSelectsREST(t *testing.T) {
	cfg := &Config{SourceKind: SourceREST, BackendURL: "http://backend.test", BackendTimeout: time.Second}
	src, release, err := NewSource(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &client.Client{}, src)
	assert.NoError(t, SeedSchema(context.Background(), src))

	_, _, err = NewSource(context.Background(), &Config{SourceKind: SourceREST, BackendURL: "::"}, nil, prometheus.NewRegistry())
	assert.Error(t, err)
	_, _, err = NewSource(context.Background(), &Config{SourceKind: "mongo"}, nil, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestNewPDFExporterOptional(t *testing.T) {
	assert.Nil(t, NewPDFExporter(&Config{}))
	assert.NotNil(t, NewPDFExporter(&Config{GotenbergURL: "http://gotenberg:3000"}))
}

func TestNewAnalyticsServiceWithoutRedis(t *testing.T) {
	cfg := &Config{LowStockThreshold: 4}
	svc := NewAnalyticsService(cfg, nil, nil, nil)
	_, err := svc.Dashboard(context.Background(), analytics.RangeWeek)
	assert.Error(t, err)
	assert.Equal(t, time.UTC, svc.Now().Location())
}
