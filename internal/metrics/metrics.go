// ABOUTME: Prometheus metrics for tool calls, authentication, and the connection pool
// ABOUTME: Collectors register on the default registry and are served by the CLI

package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "unwind"

var (
	// ToolCallsTotal counts tool invocations by tool name and outcome (ok, not_found, invalid_input, error).
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Total tool calls by tool and outcome.",
	}, []string{"tool", "outcome"})

	// ToolCallDuration tracks tool latency including pool wait time.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "call_duration_seconds",
		Help:      "Tool call duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	// AuthFailuresTotal counts rejected credentials by reason.
	AuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "failures_total",
		Help:      "Rejected bearer tokens by failure reason.",
	}, []string{"reason"})
)

// PoolStatter is satisfied by the store accessor.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports connection pool gauges on every scrape.
type PoolCollector struct {
	source PoolStatter

	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	emptyAcquire *prometheus.Desc
	waitSeconds  *prometheus.Desc
}

// NewPoolCollector creates a collector over the given pool source.
func NewPoolCollector(source PoolStatter) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, nil)
	}
	return &PoolCollector{
		source:       source,
		acquired:     desc("acquired_conns", "Connections currently checked out."),
		idle:         desc("idle_conns", "Idle connections in the pool."),
		total:        desc("total_conns", "Open connections in the pool."),
		max:          desc("max_conns", "Configured maximum pool size."),
		emptyAcquire: desc("empty_acquire_total", "Acquires that had to wait for a connection."),
		waitSeconds:  desc("acquire_wait_seconds_total", "Cumulative time spent waiting for a connection."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.emptyAcquire
	ch <- c.waitSeconds
}

// Collect implements prometheus.Collector. Nothing is emitted before the pool exists.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.source.Stat()
	if stat == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, stat.AcquireDuration().Seconds())
}
