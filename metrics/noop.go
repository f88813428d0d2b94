package metrics

import "github.com/prometheus/client_golang/prometheus"

// NoopRegistry is a Registry whose metrics discard every update.
type NoopRegistry struct{}

// NewGauge implements Registry.
func (NoopRegistry) NewGauge(prometheus.GaugeOpts) (Gauge, error) {
	return noopMetric{}, nil
}

// NewGaugeVec implements Registry.
func (NoopRegistry) NewGaugeVec(prometheus.GaugeOpts, []string) (GaugeVec, error) {
	return noopMetric{}, nil
}

// NewCounter implements Registry.
func (NoopRegistry) NewCounter(prometheus.CounterOpts) (Counter, error) {
	return noopMetric{}, nil
}

// NewCounterVec implements Registry.
func (NoopRegistry) NewCounterVec(prometheus.CounterOpts, []string) (CounterVec, error) {
	return noopCounterVec{}, nil
}

type noopMetric struct{}

func (noopMetric) Set(float64)                  {}
func (noopMetric) Inc()                         {}
func (noopMetric) Add(float64)                  {}
func (noopMetric) With(prometheus.Labels) Gauge { return noopMetric{} }

type noopCounterVec struct{}

func (noopCounterVec) With(prometheus.Labels) Counter { return noopMetric{} }
