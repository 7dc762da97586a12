// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector records wallet, transfer, rate limit and HTTP metrics on its
// own registry.
type Collector struct {
	registry *prometheus.Registry

	opDuration  *prometheus.HistogramVec
	opResults   *prometheus.CounterVec
	volume      *prometheus.CounterVec
	rateLimit   *prometheus.CounterVec
	rateLimitEr *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Duration of wallet operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		opResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operation_results_total",
			Help: "Wallet operation outcomes by result code",
		}, []string{"operation", "result"}),
		volume: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfer_volume_total",
			Help: "Sum of completed transfer amounts",
		}, []string{"type"}),
		rateLimit: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_rate_limit_decisions_total",
			Help: "Rate limit decisions by policy",
		}, []string{"policy", "decision"}),
		rateLimitEr: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_rate_limit_errors_total",
			Help: "Rate limit backend failures that let the request through",
		}, []string{"policy"}),
		httpReqs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.opResults.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordTransactionVolume(txType string, amount decimal.Decimal) {
	c.volume.WithLabelValues(txType).Add(amount.InexactFloat64())
}

func (c *Collector) RecordRateLimitDecision(policy string, allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	c.rateLimit.WithLabelValues(policy, decision).Inc()
}

func (c *Collector) RecordRateLimitError(policy string) {
	c.rateLimitEr.WithLabelValues(policy).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
