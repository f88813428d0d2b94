package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/journeyid/export"
	"github.com/nomis52/journeyid/registry"
)

// SnapshotJobName is the name the snapshot job is registered under.
const SnapshotJobName = "snapshot"

// SnapshotRun is the outcome of one snapshot.
type SnapshotRun struct {
	At      time.Time `json:"at"`
	Entries int       `json:"entries"`
	Path    string    `json:"path,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Snapshotter exports every stored registry entry as one manifest and
// remembers the outcome of the latest export.
type Snapshotter struct {
	clock  func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	last *SnapshotRun
}

// NewSnapshotter creates a Snapshotter.
func NewSnapshotter(logger *slog.Logger) *Snapshotter {
	return &Snapshotter{
		clock:  time.Now,
		logger: logger,
	}
}

// Snapshot reads every entry from store and exports them with exporter.
func (s *Snapshotter) Snapshot(ctx context.Context, store registry.Store, exporter export.Exporter) error {
	now := s.clock()
	run := SnapshotRun{At: now}
	defer func() {
		s.mu.Lock()
		s.last = &run
		s.mu.Unlock()
	}()

	entries, err := store.Entries(ctx)
	if err != nil {
		run.Error = err.Error()
		return fmt.Errorf("reading registry entries: %w", err)
	}
	run.Entries = len(entries)

	m := export.Manifest{
		Kind:        export.KindSnapshot,
		GeneratedAt: now,
		Entries:     entries,
	}
	for _, e := range entries {
		if e.Type == registry.TypeSequence {
			m.SequenceCount++
		}
	}

	path, err := exporter.ExportManifest(ctx, m)
	if err != nil {
		run.Error = err.Error()
		return fmt.Errorf("exporting snapshot: %w", err)
	}
	run.Path = path

	s.logger.Info("exported registry snapshot", "entries", len(entries), "path", path)
	return nil
}

// LastRun returns the most recent snapshot, or nil if none has run.
func (s *Snapshotter) LastRun() *SnapshotRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	last := *s.last
	return &last
}
