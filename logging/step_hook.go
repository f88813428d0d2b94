package logging

import "log/slog"

// LoggerHook derives the logger handed to one workflow step.
type LoggerHook interface {
	StepLogger(base *slog.Logger, step string) *slog.Logger
}

// CaptureHook gives every step a logger that records into a shared collector.
type CaptureHook struct {
	collector *LogCollector
	level     slog.Leveler
}

// NewCaptureHook creates a hook that captures step logs from debug up.
func NewCaptureHook(collector *LogCollector) *CaptureHook {
	return &CaptureHook{collector: collector, level: slog.LevelDebug}
}

// StepLogger implements LoggerHook.
func (h *CaptureHook) StepLogger(base *slog.Logger, step string) *slog.Logger {
	return slog.New(NewCaptureHandler(base.Handler(), h.collector, step, h.level))
}
