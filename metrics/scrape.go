package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry registers metrics with a private Prometheus registry that
// the server exposes on /metrics.
type ScrapeRegistry struct {
	prom *prometheus.Registry
}

// NewScrapeRegistry creates a registry with the Go runtime, process and
// build info collectors already registered.
func NewScrapeRegistry() (*ScrapeRegistry, error) {
	r := &ScrapeRegistry{prom: prometheus.NewRegistry()}
	for name, c := range map[string]prometheus.Collector{
		"go":         collectors.NewGoCollector(),
		"process":    collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		"build info": collectors.NewBuildInfoCollector(),
	} {
		if _, err := register(r, name, c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus text or OpenMetrics format.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// PrometheusRegistry returns the underlying registry.
func (r *ScrapeRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// NewGauge implements Registry.
func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return register(r, opts.Name, prometheus.NewGauge(opts))
}

// NewGaugeVec implements Registry.
func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	vec, err := register(r, opts.Name, prometheus.NewGaugeVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return scrapeGaugeVec{vec}, nil
}

// NewCounter implements Registry.
func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return register(r, opts.Name, prometheus.NewCounter(opts))
}

// NewCounterVec implements Registry.
func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	vec, err := register(r, opts.Name, prometheus.NewCounterVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return scrapeCounterVec{vec}, nil
}

func register[C prometheus.Collector](r *ScrapeRegistry, name string, c C) (C, error) {
	if err := r.prom.Register(c); err != nil {
		var zero C
		return zero, fmt.Errorf("registering %q: %w", name, err)
	}
	return c, nil
}

// The client_golang metric types satisfy Gauge and Counter directly; only the
// vectors need adapting because With returns the concrete type.

type scrapeGaugeVec struct{ *prometheus.GaugeVec }

func (v scrapeGaugeVec) With(labels prometheus.Labels) Gauge {
	return v.GaugeVec.With(labels)
}

type scrapeCounterVec struct{ *prometheus.CounterVec }

func (v scrapeCounterVec) With(labels prometheus.Labels) Counter {
	return v.CounterVec.With(labels)
}
