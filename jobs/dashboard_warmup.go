package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maison-parfum/maison/internal/analytics"
	jobmetrics "github.com/maison-parfum/maison/internal/jobs"
	"github.com/maison-parfum/maison/internal/notify"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// maxListedVariants caps how many variants a low-stock notice names.
const maxListedVariants = 5

// DashboardWarmer is the slice of analytics.Service the warmup needs.
type DashboardWarmer interface {
	Dashboard(ctx context.Context, rng analytics.TimeRange) (analytics.Dashboard, error)
	Invalidate(ctx context.Context) error
}

// DashboardWarmupJob pre-populates the dashboard cache for every range and
// raises a notice when variants run low.
type DashboardWarmupJob struct {
	Analytics    DashboardWarmer
	Notifier     notify.Notifier
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	RangeTimeout time.Duration
	clock        func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(svc DashboardWarmer, notifier notify.Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Analytics:    svc,
		Notifier:     notifier,
		Logger:       logger,
		Metrics:      metrics,
		RangeTimeout: 20 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	ranges, err := warmupRanges(payload.Ranges)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := j.now()
	logger.Info("starting dashboard warmup", slog.Int("ranges", len(ranges)), slog.Bool("refresh", payload.Refresh))

	if payload.Refresh {
		if err := j.Analytics.Invalidate(ctx); err != nil {
			logger.Error("invalidate dashboards", slog.Any("error", err))
			return err
		}
	}

	var lowStock []analytics.LowStockVariant
	for _, rng := range ranges {
		dash, err := j.warmRange(ctx, rng)
		if err != nil {
			logger.Error("warm range", slog.String("range", string(rng)), slog.Any("error", err))
			return err
		}
		lowStock = dash.LowStockVariants
	}

	if len(lowStock) > 0 {
		j.metrics().SetLowStock(len(lowStock))
		if err := j.notifyLowStock(ctx, lowStock); err != nil {
			logger.Warn("low stock notice", slog.Any("error", err))
		}
	} else {
		j.metrics().SetLowStock(0)
	}

	logger.Info("completed dashboard warmup",
		slog.Int("ranges", len(ranges)),
		slog.Int("low_stock", len(lowStock)),
		slog.Duration("duration", j.now().Sub(started)))
	return nil
}

func (j *DashboardWarmupJob) warmRange(ctx context.Context, rng analytics.TimeRange) (analytics.Dashboard, error) {
	timeout := j.RangeTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rangeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Analytics.Dashboard(rangeCtx, rng)
}

func (j *DashboardWarmupJob) notifyLowStock(ctx context.Context, variants []analytics.LowStockVariant) error {
	if j.Notifier == nil {
		return nil
	}
	names := make([]string, 0, maxListedVariants)
	for i, v := range variants {
		if i == maxListedVariants {
			names = append(names, fmt.Sprintf("and %d more", len(variants)-maxListedVariants))
			break
		}
		label := v.ProductName
		if v.Name != "" {
			label += " (" + v.Name + ")"
		}
		names = append(names, fmt.Sprintf("%s: %d left", label, int(v.Stock)))
	}
	notice := notify.NewNotice(notify.LevelWarning,
		fmt.Sprintf("%d variants are running low", len(variants)),
		strings.Join(names, "; "))
	notice.CreatedAt = j.now()
	notice.Meta = map[string]string{"count": strconv.Itoa(len(variants))}
	return j.Notifier.Notify(ctx, notice)
}

func warmupRanges(raw []string) ([]analytics.TimeRange, error) {
	if len(raw) == 0 {
		return analytics.Ranges, nil
	}
	out := make([]analytics.TimeRange, 0, len(raw))
	seen := make(map[analytics.TimeRange]struct{}, len(raw))
	for _, value := range raw {
		rng, err := analytics.ParseTimeRange(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[rng]; ok {
			continue
		}
		seen[rng] = struct{}{}
		out = append(out, rng)
	}
	return out, nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
