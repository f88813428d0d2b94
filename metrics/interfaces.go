// Package metrics records activation metrics through a Registry that either
// exposes them for scraping (server) or pushes them to a remote write
// endpoint (CLI).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge holds the latest value of a measurement.
type Gauge interface {
	Set(float64)
}

// Counter only goes up. Add panics on a negative value.
type Counter interface {
	Inc()
	Add(float64)
}

// GaugeVec partitions a Gauge by label values.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec partitions a Counter by label values.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates metrics. ScrapeRegistry backs the server, PushRegistry
// the CLI and NoopRegistry tests and unmonitored runs.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
