package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the charge engine.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	queryDuration *prometheus.HistogramVec
	queriesTotal  *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

// NewMetrics registers all metrics in a private registry, so it can be called
// more than once (e.g. in tests) without duplicate collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "charges_query_duration_seconds",
				Help:    "Duration of charge listing stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charges_queries_total",
				Help: "Total charge listings by outcome.",
			},
			[]string{"outcome"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charges_mutations_total",
				Help: "Total charge and installment mutations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "charges_cache_hits_total",
			Help: "Total charge collection cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "charges_cache_misses_total",
			Help: "Total charge collection cache misses.",
		}),
	}
}

// ObserveQuery records the duration of one listing stage (load, filter, paginate).
func (m *Metrics) ObserveQuery(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrQuery counts a listing by outcome (ok, clamped, error).
func (m *Metrics) IncrQuery(outcome string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
}

// IncrMutation counts a state write.
func (m *Metrics) IncrMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncrCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) IncrCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
