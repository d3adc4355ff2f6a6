package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/maison-parfum/maison/internal/storefront"
)

// Source exposes the storefront collections the dashboard is derived from.
type Source interface {
	Orders(ctx context.Context) ([]storefront.Order, error)
	Users(ctx context.Context) ([]storefront.User, error)
	Products(ctx context.Context) ([]storefront.Product, error)
	ReportOrders(ctx context.Context) ([]storefront.Order, error)
	AbandonedCarts(ctx context.Context) ([]storefront.AbandonedCartItem, error)
}

var errSourceMissing = errors.New("analytics: source not configured")

// Snapshotter is implemented by sources that can read every collection at
// one consistent point in time.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Input, error)
}

// ServiceConfig carries store policy for the service.
type ServiceConfig struct {
	Location          *time.Location
	LowStockThreshold int
	Logger            *slog.Logger
}

// Service loads storefront snapshots, derives dashboards, and memoises them.
type Service struct {
	source Source
	cache  *Cache
	loc    *time.Location
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group

	lastBump atomic.Int64
}

// NewService wires a Source with an optional Cache.
func NewService(source Source, cache *Cache, cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{
		source: source,
		cache:  cache,
		loc:    loc,
		opts:   Options{LowStockThreshold: threshold},
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Now returns the store-local wall clock.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Dashboard returns the dashboard for rng. Concurrent callers asking for the
// same range share one computation.
func (s *Service) Dashboard(ctx context.Context, rng TimeRange) (Dashboard, error) {
	rng, err := ParseTimeRange(string(rng))
	if err != nil {
		return Dashboard{}, err
	}
	if s.source == nil {
		return Dashboard{}, errSourceMissing
	}

	loader := func(ctx context.Context) (interface{}, error) {
		input, err := s.Snapshot(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		return Aggregate(input, rng, s.Now(), s.opts), nil
	}

	key, err := s.cache.BuildKey(ctx, keyDashboard(rng, s.opts.LowStockThreshold))
	if err != nil {
		return Dashboard{}, err
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		if s.cache == nil {
			return loader(ctx)
		}
		var dash Dashboard
		if err := s.cache.FetchJSON(ctx, key, &dash, loader); err != nil {
			return Dashboard{}, err
		}
		return dash, nil
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			s.logError("load dashboard", res.Err, slog.String("range", string(rng)))
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

// Snapshot fetches every collection, concurrently unless the source can take
// a consistent snapshot itself.
func (s *Service) Snapshot(ctx context.Context) (Input, error) {
	if s.source == nil {
		return Input{}, errSourceMissing
	}
	if snap, ok := s.source.(Snapshotter); ok {
		return snap.Snapshot(ctx)
	}
	var input Input
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := s.source.Orders(ctx)
		if err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		input.Orders = orders
		return nil
	})
	g.Go(func() error {
		users, err := s.source.Users(ctx)
		if err != nil {
			return fmt.Errorf("fetch users: %w", err)
		}
		input.Users = users
		return nil
	})
	g.Go(func() error {
		products, err := s.source.Products(ctx)
		if err != nil {
			return fmt.Errorf("fetch products: %w", err)
		}
		input.Products = products
		return nil
	})
	g.Go(func() error {
		reports, err := s.source.ReportOrders(ctx)
		if err != nil {
			return fmt.Errorf("fetch report orders: %w", err)
		}
		input.ReportOrders = reports
		return nil
	})
	g.Go(func() error {
		carts, err := s.source.AbandonedCarts(ctx)
		if err != nil {
			return fmt.Errorf("fetch abandoned carts: %w", err)
		}
		input.AbandonedCarts = carts
		return nil
	})

	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return input, nil
}

// Invalidate drops every memoised dashboard.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// ListenForInvalidation follows bumps issued by other replicas. Stale or
// replayed bumps are ignored.
func (s *Service) ListenForInvalidation(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, BumpChannel, s.observeBump)
}

// LastBump is the newest cache version announced by any replica.
func (s *Service) LastBump() int64 {
	return s.lastBump.Load()
}

func (s *Service) observeBump(ver int64) {
	for {
		seen := s.lastBump.Load()
		if ver <= seen {
			return
		}
		if s.lastBump.CompareAndSwap(seen, ver) {
			break
		}
	}
	if s.logger != nil {
		s.logger.Info("analytics cache invalidated", slog.Int64("version", ver))
	}
}

func (s *Service) logError(msg string, err error, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg, append(attrs, slog.Any("error", err))...)
}
