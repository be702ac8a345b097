package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway_registry"

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	// GatewayOperationsTotal counts registry mutations by operation and result.
	GatewayOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_operations_total",
			Help:      "Gateway registry operations by outcome",
		},
		[]string{"operation", "result"},
	)

	// TokenOperationsTotal counts token issue/rotate/revoke calls by result.
	TokenOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_operations_total",
			Help:      "Gateway token lifecycle operations by outcome",
		},
		[]string{"operation", "result"},
	)

	// VerificationsTotal counts token verifications by result.
	VerificationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Gateway token verifications by outcome",
		},
		[]string{"result"},
	)

	// StatusCacheLookupsTotal counts status projection cache hits, misses and errors.
	StatusCacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_cache_lookups_total",
			Help:      "Status projection cache lookups by outcome",
		},
		[]string{"result"},
	)

	// HTTPRequestDurationSeconds observes request latency per route.
	HTTPRequestDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Result labels shared by the counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ObserveRequest records the latency of a finished HTTP request.
func ObserveRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequestDurationSeconds.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
