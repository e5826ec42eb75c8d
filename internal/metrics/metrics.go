// Package metrics provides Prometheus metrics for the SQL engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Buffer pool metrics
	BufferPoolHitsTotal      prometheus.Counter
	BufferPoolMissesTotal    prometheus.Counter
	BufferPoolEvictionsTotal prometheus.Counter
	BufferPoolPinsOutstanding prometheus.Gauge

	// Storage metrics
	PageReadsTotal  prometheus.Counter
	PageWritesTotal prometheus.Counter
	FlushDuration   prometheus.Histogram

	// Statement metrics
	StatementsTotal   *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	RowsScannedTotal  prometheus.Counter
	RowsReturnedTotal prometheus.Counter

	// Index metrics
	IndexRebuildDuration *prometheus.HistogramVec

	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{ServerStartTime: time.Now()}

	m.BufferPoolHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_buffer_pool_hits_total",
		Help: "Total number of buffer pool fetches served from cache",
	})
	m.BufferPoolMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_buffer_pool_misses_total",
		Help: "Total number of buffer pool fetches requiring a disk read",
	})
	m.BufferPoolEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_buffer_pool_evictions_total",
		Help: "Total number of frames evicted to make room for a fetch",
	})
	m.BufferPoolPinsOutstanding = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sqlengine_buffer_pool_pins_outstanding",
		Help: "Number of currently pinned frames",
	})

	m.PageReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_page_reads_total",
		Help: "Total number of pages read from disk",
	})
	m.PageWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_page_writes_total",
		Help: "Total number of pages written to disk",
	})
	m.FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqlengine_flush_duration_seconds",
		Help:    "Duration of flush_all calls",
		Buckets: prometheus.DefBuckets,
	})

	m.StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlengine_statements_total",
			Help: "Total number of statements executed, by kind and status",
		},
		[]string{"kind", "status"},
	)
	m.StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlengine_statement_duration_seconds",
			Help:    "Duration of statement execution in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"kind"},
	)
	m.RowsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_rows_scanned_total",
		Help: "Total number of rows read by any scan node",
	})
	m.RowsReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlengine_rows_returned_total",
		Help: "Total number of rows returned to SELECT callers",
	})

	m.IndexRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlengine_index_rebuild_duration_seconds",
			Help:    "Duration of rebuilding one index from its table at catalog open",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	m.ServerUptimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sqlengine_uptime_seconds",
		Help: "Process uptime in seconds",
	})

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordStatement records one executed statement's outcome and duration.
func (m *Metrics) RecordStatement(kind, status string, duration time.Duration) {
	m.StatementsTotal.WithLabelValues(kind, status).Inc()
	m.StatementDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordIndexRebuild records the duration of rebuilding one index at startup.
func (m *Metrics) RecordIndexRebuild(index string, duration time.Duration) {
	m.IndexRebuildDuration.WithLabelValues(index).Observe(duration.Seconds())
}
