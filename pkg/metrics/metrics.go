// Package metrics tracks statement executions. Counters are exported through
// the default Prometheus registry, which the plugin SDK serves to Grafana.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "grafana_plugin"
	subsystem = "redshift"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "queries_total",
		Help:      "Statements executed against the Redshift Data API, by outcome.",
	}, []string{"status"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "query_duration_seconds",
		Help:      "Time from statement submission to the last result page.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	concurrentQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "concurrent_queries",
		Help:      "Statements currently in flight.",
	})
)

// Metrics is a snapshot of the plugin's query statistics.
type Metrics struct {
	QueryCount        uint64
	ErrorCount        uint64
	TotalQueryTime    time.Duration
	AverageQueryTime  time.Duration
	LastQueryTime     time.Time
	ConcurrentQueries int32
}

var (
	mu      sync.Mutex
	current Metrics
)

// RecordQuery records metrics for a completed query
func RecordQuery(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(status).Inc()
	queryDuration.Observe(duration.Seconds())

	mu.Lock()
	defer mu.Unlock()
	current.QueryCount++
	if err != nil {
		current.ErrorCount++
	}
	current.TotalQueryTime += duration
	current.AverageQueryTime = current.TotalQueryTime / time.Duration(current.QueryCount)
	current.LastQueryTime = time.Now()
}

// IncrementConcurrentQueries increments the count of concurrent queries
func IncrementConcurrentQueries() {
	concurrentQueries.Inc()
	mu.Lock()
	current.ConcurrentQueries++
	mu.Unlock()
}

// DecrementConcurrentQueries decrements the count of concurrent queries
func DecrementConcurrentQueries() {
	concurrentQueries.Dec()
	mu.Lock()
	current.ConcurrentQueries--
	mu.Unlock()
}

// Track marks a query as in flight and returns a func that records its
// outcome. Use as: done := metrics.Track(); defer func() { done(err) }().
func Track() func(err error) {
	start := time.Now()
	IncrementConcurrentQueries()
	return func(err error) {
		DecrementConcurrentQueries()
		RecordQuery(time.Since(start), err)
	}
}

// GetMetrics returns a copy of the current metrics
func GetMetrics() Metrics {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// ResetMetrics clears the snapshot. Prometheus counters are monotonic and
// are not reset.
func ResetMetrics() {
	mu.Lock()
	defer mu.Unlock()
	concurrentQueries.Sub(float64(current.ConcurrentQueries))
	current = Metrics{}
}
