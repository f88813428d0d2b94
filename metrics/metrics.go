package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Activation outcomes recorded in activations_total.
const (
	OutcomeActivated        = "activated"
	OutcomeForceActivated   = "force_activated"
	OutcomeValidationFailed = "validation_failed"
	OutcomeFailed           = "failed"
)

// ActivationMetrics are the metrics recorded for each activation.
type ActivationMetrics struct {
	activations   CounterVec
	entriesMinted CounterVec
	phaseFailures CounterVec
	lastEntries   Gauge
}

// NewActivationMetrics registers the activation metrics with reg.
func NewActivationMetrics(reg Registry) (*ActivationMetrics, error) {
	activations, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "activations_total",
		Help: "Activations by outcome",
	}, []string{"outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating activations counter: %w", err)
	}

	entriesMinted, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "entries_minted_total",
		Help: "Registry entries minted by entry type",
	}, []string{"type"})
	if err != nil {
		return nil, fmt.Errorf("creating entries counter: %w", err)
	}

	phaseFailures, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "activation_phase_failures_total",
		Help: "Failed activations by the phase they failed in",
	}, []string{"phase"})
	if err != nil {
		return nil, fmt.Errorf("creating phase failure counter: %w", err)
	}

	lastEntries, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "last_activation_entries",
		Help: "Number of entries minted by the most recent activation",
	})
	if err != nil {
		return nil, fmt.Errorf("creating last entries gauge: %w", err)
	}

	return &ActivationMetrics{
		activations:   activations,
		entriesMinted: entriesMinted,
		phaseFailures: phaseFailures,
		lastEntries:   lastEntries,
	}, nil
}

// RecordOutcome counts a finished activation.
func (m *ActivationMetrics) RecordOutcome(outcome string) {
	m.activations.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordEntries counts minted entries of one type.
func (m *ActivationMetrics) RecordEntries(entryType string, n int) {
	if n <= 0 {
		return
	}
	m.entriesMinted.With(prometheus.Labels{"type": entryType}).Add(float64(n))
}

// RecordPhaseFailure counts an activation that failed in phase.
func (m *ActivationMetrics) RecordPhaseFailure(phase string) {
	m.phaseFailures.With(prometheus.Labels{"phase": phase}).Inc()
}

// SetLastEntries records the entry count of the latest activation.
func (m *ActivationMetrics) SetLastEntries(n int) {
	m.lastEntries.Set(float64(n))
}
