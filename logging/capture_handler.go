package logging

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "REDACTED"

// secretKeys are attribute names whose values never reach a collector.
var secretKeys = map[string]bool{
	"password":       true,
	"redis_password": true,
	"dsn":            true,
	"postgres_dsn":   true,
	"token":          true,
	"secret":         true,
}

// CaptureHandler records every log of one activation step into a
// LogCollector and forwards it to next.
//
// Records at or above the capture level are collected even when next filters
// them out, so a server running at warn still returns debug step logs with
// an activation.
type CaptureHandler struct {
	next      slog.Handler
	collector *LogCollector
	step      string
	level     slog.Leveler
	prefix    string // dotted WithGroup path
	attrs     map[string]any
}

// NewCaptureHandler creates a CaptureHandler for step. A nil level captures
// everything from debug up.
func NewCaptureHandler(next slog.Handler, collector *LogCollector, step string, level slog.Leveler) *CaptureHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &CaptureHandler{
		next:      next,
		collector: collector,
		step:      step,
		level:     level,
	}
}

// Enabled implements slog.Handler.
func (h *CaptureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() || h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		entry := LogEntry{
			Time:    r.Time,
			Level:   r.Level.String(),
			Message: r.Message,
		}
		if len(h.attrs) > 0 || r.NumAttrs() > 0 {
			entry.Attributes = make(map[string]any, len(h.attrs)+r.NumAttrs())
			for k, v := range h.attrs {
				entry.Attributes[k] = v
			}
			r.Attrs(func(a slog.Attr) bool {
				flatten(entry.Attributes, h.prefix, a)
				return true
			})
		}
		h.collector.Add(h.step, entry)
	}

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		flatten(c.attrs, c.prefix, a)
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.next = h.next.WithGroup(name)
	c.prefix = h.prefix + name + "."
	return c
}

func (h *CaptureHandler) clone() *CaptureHandler {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &CaptureHandler{
		next:      h.next,
		collector: h.collector,
		step:      h.step,
		level:     h.level,
		prefix:    h.prefix,
		attrs:     attrs,
	}
}

// flatten stores a under its dotted key, expanding groups and redacting
// secrets.
func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if secretKeys[strings.ToLower(a.Key)] {
		dst[prefix+a.Key] = redacted
		return
	}
	dst[prefix+a.Key] = plainValue(v)
}

// plainValue converts v into something encoding/json renders sensibly.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case interface{ String() string }:
			return x.String()
		default:
			return x
		}
	default:
		return v.Any()
	}
}
