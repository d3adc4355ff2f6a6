package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maison-parfum/maison/internal/analytics"
	jobmetrics "github.com/maison-parfum/maison/internal/jobs"
	"github.com/maison-parfum/maison/internal/notify"
	"github.com/maison-parfum/maison/internal/storefront"
)

type stubWarmer struct {
	mu          sync.Mutex
	calls       []analytics.TimeRange
	invalidated int
	lowStock    []analytics.LowStockVariant
	err         error
}

func (s *stubWarmer) Dashboard(ctx context.Context, rng analytics.TimeRange) (analytics.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rng)
	if s.err != nil {
		return analytics.Dashboard{}, s.err
	}
	return analytics.Dashboard{Range: rng, LowStockVariants: s.lowStock}, nil
}

func (s *stubWarmer) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	return nil
}

func newWarmupJob(t *testing.T, warmer *stubWarmer, notifier notify.Notifier) (*DashboardWarmupJob, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	job := NewDashboardWarmupJob(warmer, notifier, nil, jobmetrics.NewMetrics(reg))
	job.clock = func() time.Time { return time.Date(2024, 5, 10, 1, 15, 0, 0, time.UTC) }
	return job, reg
}

// metricValue reads a gauge or counter sample whose labels include want.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return 0
}

func lowVariant(product, name string, stock int) analytics.LowStockVariant {
	return analytics.LowStockVariant{
		Variant:     storefront.Variant{ID: product + "-" + name, Name: name, Stock: storefront.Quantity(stock)},
		ProductName: product,
	}
}

func TestDashboardWarmupWarmsEveryRange(t *testing.T) {
	warmer := &stubWarmer{}
	recorder := &notify.Recorder{}
	job, _ := newWarmupJob(t, warmer, recorder)

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, analytics.Ranges, warmer.calls)
	assert.Zero(t, warmer.invalidated)
	assert.Empty(t, recorder.Notices())
}

func TestDashboardWarmupRefreshAndSubset(t *testing.T) {
	warmer := &stubWarmer{}
	job, _ := newWarmupJob(t, warmer, notify.Discard)

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Ranges: []string{"week", "Week", "year"}, Refresh: true})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []analytics.TimeRange{analytics.RangeWeek, analytics.RangeYear}, warmer.calls)
	assert.Equal(t, 1, warmer.invalidated)
}

func TestDashboardWarmupLowStockNotice(t *testing.T) {
	warmer := &stubWarmer{lowStock: []analytics.LowStockVariant{
		lowVariant("Oud Royale", "", 0),
		lowVariant("Rose Noir", "50ml", 3),
	}}
	recorder := &notify.Recorder{}
	job, reg := newWarmupJob(t, warmer, recorder)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))

	notices := recorder.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.LevelWarning, notices[0].Level)
	assert.Equal(t, "2 variants are running low", notices[0].Title)
	assert.Equal(t, "Oud Royale: 0 left; Rose Noir (50ml): 3 left", notices[0].Body)
	assert.Equal(t, "2", notices[0].Meta["count"])
	assert.NotEmpty(t, notices[0].ID)
	assert.Equal(t, 2.0, metricValue(t, reg, "maison_low_stock_variants", nil))
}

func TestDashboardWarmupCapsListedVariants(t *testing.T) {
	variants := make([]analytics.LowStockVariant, 0, 7)
	for i := 0; i < 7; i++ {
		variants = append(variants, lowVariant("Attar", string(rune('A'+i)), i))
	}
	recorder := &notify.Recorder{}
	job, _ := newWarmupJob(t, &stubWarmer{lowStock: variants}, recorder)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
	notices := recorder.Notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Body, "and 2 more")
	assert.NotContains(t, notices[0].Body, "Attar (F)")
}

func TestDashboardWarmupFailure(t *testing.T) {
	boom := errors.New("backend down")
	warmer := &stubWarmer{err: boom}
	recorder := &notify.Recorder{}
	job, reg := newWarmupJob(t, warmer, recorder)

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil))
	require.ErrorIs(t, err, boom)
	assert.Len(t, warmer.calls, 1)
	assert.Empty(t, recorder.Notices())
	assert.Equal(t, 1.0, metricValue(t, reg, "maison_jobs_failures_total", map[string]string{"job": TaskDashboardWarmup}))
}

func TestDashboardWarmupRejectsBadPayload(t *testing.T) {
	job, _ := newWarmupJob(t, &stubWarmer{}, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(DashboardWarmupPayload{Ranges: []string{"decade"}})
	err = job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewDashboardWarmupTask(DashboardWarmupPayload{Ranges: []string{"decade"}})
	assert.ErrorIs(t, err, analytics.ErrUnknownRange)
}

func TestNotifyDeliverForwardsToSink(t *testing.T) {
	recorder := &notify.Recorder{}
	reg := prometheus.NewRegistry()
	job := &NotifyDeliverJob{Sink: recorder, Metrics: jobmetrics.NewMetrics(reg)}

	notice := notify.NewNotice(notify.LevelSuccess, "Export ready", "week.pdf")
	task, err := NewNotifyDeliverTask(notice)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	got := recorder.Notices()
	require.Len(t, got, 1)
	assert.Equal(t, notice.ID, got[0].ID)
	assert.Equal(t, "Export ready", got[0].Title)
	assert.True(t, notice.CreatedAt.Equal(got[0].CreatedAt))
	assert.Equal(t, 1.0, metricValue(t, reg, "maison_notices_delivered_total", map[string]string{"level": "success"}))
}

func TestNotifyDeliverErrors(t *testing.T) {
	boom := errors.New("smtp down")
	job := &NotifyDeliverJob{
		Sink:    notify.Func(func(context.Context, notify.Notice) error { return boom }),
		Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
	task, err := NewNotifyDeliverTask(notify.NewNotice(notify.LevelError, "Sync failed", ""))
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)

	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskNotifyDeliver, []byte(`{}`))), asynq.SkipRetry)

	var unset *NotifyDeliverJob
	assert.Error(t, unset.Handle(context.Background(), task))
}

func TestQueueNotifierEnqueuesOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	notifier := QueueNotifier{Client: client}
	notice := notify.NewNotice(notify.LevelInfo, "Cache refreshed", "")
	require.NoError(t, notifier.Notify(context.Background(), notice))
	require.NoError(t, notifier.Notify(context.Background(), notice))

	pending, err := mr.List("asynq:{" + QueueNotify + "}:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{notice.ID}, pending)

	assert.Error(t, QueueNotifier{}.Notify(context.Background(), notice))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queues []QueueStat `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Queues, 2)
	assert.Equal(t, QueueNotify, body.Queues[0].Queue)
	assert.Equal(t, QueueDefault, body.Queues[1].Queue)
}

func TestRedisClientOpt(t *testing.T) {
	opt := RedisClientOpt(&redis.Options{Addr: "cache:6380", Password: "pw", DB: 2})
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, asynq.RedisClientOpt{}, RedisClientOpt(nil))
}
