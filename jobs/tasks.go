package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/maison-parfum/maison/internal/analytics"
	jobmetrics "github.com/maison-parfum/maison/internal/jobs"
	"github.com/maison-parfum/maison/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotify carries operator notices waiting for delivery.
	QueueNotify = "notify"

	// TaskDashboardWarmup recomputes and caches every dashboard range.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskNotifyDeliver hands a queued notice to the configured sink.
	TaskNotifyDeliver = "notify:deliver"
)

// DashboardWarmupPayload selects the ranges to warm. Empty means all of them.
type DashboardWarmupPayload struct {
	Ranges  []string `json:"ranges,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`
}

// NewDashboardWarmupTask constructs a warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	for _, raw := range payload.Ranges {
		if _, err := analytics.ParseTimeRange(raw); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewNotifyDeliverTask wraps a notice for queued delivery.
func NewNotifyDeliverTask(n notify.Notice) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDeliver, data), nil
}

// NotifyDeliverJob forwards queued notices to Sink.
type NotifyDeliverJob struct {
	Sink    notify.Notifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskNotifyDeliver tasks.
func (j *NotifyDeliverJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sink == nil {
		return errors.New("notify deliver: sink not configured")
	}
	var n notify.Notice
	if err := json.Unmarshal(t.Payload(), &n); err != nil || n.Title == "" {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskNotifyDeliver)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Sink.Notify(ctx, n); err != nil {
		if j.Logger != nil {
			j.Logger.Warn("deliver notice", slog.String("notice_id", n.ID), slog.Any("error", err))
		}
		return err
	}
	metrics.AddNotices(string(n.Level), 1)
	return nil
}
