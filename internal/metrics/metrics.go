// Package metrics exports sensorsync run metrics in the Prometheus text
// format.
//
// A sync is a short-lived batch job with no scrape endpoint, so metrics are
// written to a file for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/sensorsync/internal/engine"
)

const namespace = "sensorsync"

// Metrics holds the metrics of one process.
type Metrics struct {
	PagesFetched   prometheus.Counter
	RecordsWritten *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	Collected      prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastSuccess    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.PagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total source pages fetched",
		},
	)

	m.RecordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total records upserted by outcome",
		},
		[]string{"outcome"}, // "inserted", "updated", "unchanged"
	)

	m.Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total sync runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	m.Collected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_collected",
			Help:      "Samples collected by the last run",
		},
	)

	m.RunDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock duration of the last run",
		},
	)

	m.LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)

	m.registry.MustRegister(
		m.PagesFetched,
		m.RecordsWritten,
		m.Runs,
		m.Collected,
		m.RunDuration,
		m.LastSuccess,
	)
	return m
}

// ObserveRun records the outcome of one engine run. res may be partial when
// err is non-nil; finished is when the run returned.
func (m *Metrics) ObserveRun(res *engine.Result, err error, duration time.Duration, finished time.Time) {
	mode := "unknown"
	if res != nil {
		if res.Mode != "" {
			mode = string(res.Mode)
		}
		m.PagesFetched.Add(float64(res.Pages))
		m.RecordsWritten.WithLabelValues("inserted").Add(float64(res.Inserted))
		m.RecordsWritten.WithLabelValues("updated").Add(float64(res.Updated))
		m.RecordsWritten.WithLabelValues("unchanged").Add(float64(res.Unchanged))
		m.Collected.Set(float64(res.Collected))
	}

	m.RunDuration.Set(duration.Seconds())

	status := "succeeded"
	if err != nil {
		status = "failed"
	} else {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
	m.Runs.WithLabelValues(mode, status).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
