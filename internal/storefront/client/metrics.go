package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Metrics records backend fetches. A nil *Metrics is a no-op.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	breaker  prometheus.Gauge
}

// NewMetrics registers the storefront client collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maison_storefront_requests_total",
			Help: "Storefront backend fetches partitioned by path and outcome.",
		}, []string{"path", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maison_storefront_request_duration_seconds",
			Help:    "Latency of storefront backend fetches including decoding.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		breaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maison_storefront_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}
	registerer.MustRegister(m.requests, m.duration, m.breaker)
	return m
}

func (m *Metrics) observe(path, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, outcome).Inc()
	m.duration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) setBreakerState(state gobreaker.State) {
	if m == nil {
		return
	}
	m.breaker.Set(float64(state))
}
