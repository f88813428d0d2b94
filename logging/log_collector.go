package logging

import (
	"sort"
	"sync"
	"time"
)

const defaultMaxEntriesPerStep = 1000

// LogEntry is one captured log record of an activation step.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogCollector keeps the captured logs of one activation, grouped by step.
// Each step keeps at most maxEntries records; older records are dropped
// first and counted.
type LogCollector struct {
	maxEntries int

	mu      sync.RWMutex
	logs    map[string][]LogEntry
	dropped map[string]int
}

// CollectorOption configures a LogCollector.
type CollectorOption func(*LogCollector)

// WithMaxEntries bounds the number of records kept per step. n <= 0 keeps
// everything.
func WithMaxEntries(n int) CollectorOption {
	return func(c *LogCollector) {
		c.maxEntries = n
	}
}

// NewLogCollector creates an empty collector.
func NewLogCollector(opts ...CollectorOption) *LogCollector {
	c := &LogCollector{
		maxEntries: defaultMaxEntriesPerStep,
		logs:       make(map[string][]LogEntry),
		dropped:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add records an entry for step.
func (c *LogCollector) Add(step string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := c.logs[step]
	if c.maxEntries > 0 && len(logs) >= c.maxEntries {
		n := copy(logs, logs[len(logs)-c.maxEntries+1:])
		c.dropped[step] += len(logs) - n
		logs = logs[:n]
	}
	c.logs[step] = append(logs, entry)
}

// Logs returns a copy of the entries of step, oldest first.
func (c *LogCollector) Logs(step string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, ok := c.logs[step]
	if !ok {
		return nil
	}
	return append([]LogEntry(nil), logs...)
}

// All returns a copy of every step's entries.
func (c *LogCollector) All() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]LogEntry, len(c.logs))
	for step, logs := range c.logs {
		result[step] = append([]LogEntry(nil), logs...)
	}
	return result
}

// Steps returns the names of the steps that logged anything, sorted.
func (c *LogCollector) Steps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	steps := make([]string, 0, len(c.logs))
	for step := range c.logs {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	return steps
}

// Dropped returns how many records of step were discarded by the per-step bound.
func (c *LogCollector) Dropped(step string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped[step]
}
