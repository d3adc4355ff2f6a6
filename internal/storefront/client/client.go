// Package client fetches storefront collections from the backend admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/maison-parfum/maison/internal/platform/httpx"
	"github.com/maison-parfum/maison/internal/storefront"
)

// Admin API paths.
const (
	PathOrders         = "/api/admin/orders"
	PathUsers          = "/api/admin/users"
	PathProducts       = "/api/admin/products"
	PathReportOrders   = "/api/admin/reports/orders"
	PathAbandonedCarts = "/api/admin/carts/abandoned"
)

const maxBody = 64 << 20

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("storefront %s: status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("storefront %s: status %d: %s", e.Path, e.Status, e.Body)
}

// Unwrap lets callers match backend failures against httpx.ErrUpstream.
func (e *StatusError) Unwrap() error { return httpx.ErrUpstream }

// Config describes how to reach the backend.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *Metrics

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client implements analytics.Source over the backend admin API.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics
}

// New validates cfg and constructs a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("storefront client: invalid base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	c := &Client{
		base:    base,
		token:   cfg.Token,
		http:    httpClient,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "storefront-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Status < 500 && statusErr.Status != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.metrics.setBreakerState(to)
			if c.logger != nil {
				c.logger.Warn("storefront breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			}
		},
	})
	return c, nil
}

// Orders lists every order.
func (c *Client) Orders(ctx context.Context) ([]storefront.Order, error) {
	return fetchList[storefront.Order](ctx, c, PathOrders, "orders")
}

// Users lists every customer account.
func (c *Client) Users(ctx context.Context) ([]storefront.User, error) {
	return fetchList[storefront.User](ctx, c, PathUsers, "users")
}

// Products lists the catalog with variants.
func (c *Client) Products(ctx context.Context) ([]storefront.Product, error) {
	return fetchList[storefront.Product](ctx, c, PathProducts, "products")
}

// ReportOrders lists orders with cost prices resolved on every line.
func (c *Client) ReportOrders(ctx context.Context) ([]storefront.Order, error) {
	return fetchList[storefront.Order](ctx, c, PathReportOrders, "orders")
}

// AbandonedCarts lists cart lines still waiting for checkout.
func (c *Client) AbandonedCarts(ctx context.Context) ([]storefront.AbandonedCartItem, error) {
	return fetchList[storefront.AbandonedCartItem](ctx, c, PathAbandonedCarts, "items")
}

func fetchList[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	start := time.Now()
	raw, err := c.get(ctx, path)
	if err != nil {
		c.metrics.observe(path, outcome(err), time.Since(start))
		return nil, err
	}
	var out []T
	if err := decodeList(raw, key, &out); err != nil {
		c.metrics.observe(path, "decode_error", time.Since(start))
		return nil, fmt.Errorf("%w: decode %s: %v", httpx.ErrUpstream, path, err)
	}
	c.metrics.observe(path, "ok", time.Since(start))
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBody))
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: storefront %s: %w", httpx.ErrUpstream, path, err)
	}
	return result.([]byte), nil
}

// decodeList accepts either a bare JSON array or an object that wraps the
// array under "data" or under key.
func decodeList(raw []byte, key string, dest interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dest)
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("unexpected payload starting with %q", trimmed[0])
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	for _, field := range []string{"data", key} {
		inner, ok := envelope[field]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			return decodeList(inner, key, dest)
		}
		if bytes.Equal(inner, []byte("null")) {
			return nil
		}
		return json.Unmarshal(inner, dest)
	}
	return fmt.Errorf("envelope has neither %q nor %q", "data", key)
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("http_%d", statusErr.Status)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
