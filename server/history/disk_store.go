package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const fileTimeFormat = "2006-01-02T15-04-05"

// DiskStore persists history to disk as one JSON file per activation.
type DiskStore struct {
	dir      string
	logger   *slog.Logger
	maxCount int

	mu      sync.Mutex
	records []Record // most recent first
	files   map[string]string
}

// NewDiskStore creates a new disk-backed store.
// The directory is created if it doesn't exist, and existing records are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	s := &DiskStore{
		dir:      dir,
		logger:   logger,
		maxCount: maxCount,
		files:    make(map[string]string),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	if err := s.Reload(); err != nil {
		logger.Warn("failed to load existing history", "error", err)
	}
	return s, nil
}

// List implements Store.
func (s *DiskStore) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Summary, len(s.records))
	for i, r := range s.records {
		result[i] = r.Summary
	}
	return result
}

// Get implements Store.
func (s *DiskStore) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Save writes the record to disk and drops the oldest records beyond the
// configured maximum.
func (s *DiskStore) Save(r Record) error {
	if r.ID == "" {
		return errors.New("cannot save activation without an id")
	}
	if r.StartedAt.IsZero() {
		return errors.New("cannot save activation without start time")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.StartedAt.UTC().Format(fileTimeFormat) + "-" + r.ID + ".json"
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write activation file: %w", err)
	}

	s.records = append([]Record{r}, s.records...)
	s.files[r.ID] = path
	s.prune()

	s.logger.Debug("saved activation to disk", "path", path)
	return nil
}

// prune removes records beyond maxCount from memory and disk. Callers hold mu.
func (s *DiskStore) prune() {
	if s.maxCount <= 0 || len(s.records) <= s.maxCount {
		return
	}
	for _, old := range s.records[s.maxCount:] {
		if path, ok := s.files[old.ID]; ok {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("failed to remove old activation file", "path", path, "error", err)
			}
			delete(s.files, old.ID)
		}
	}
	s.records = s.records[:s.maxCount]
}

// Reload re-reads every record from disk.
func (s *DiskStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	var records []Record
	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read activation file", "file", path, "error", err)
			continue
		}

		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Warn("failed to parse activation file", "file", path, "error", err)
			continue
		}
		if r.ID == "" {
			s.logger.Warn("skipping activation file without id", "file", path)
			continue
		}
		records = append(records, r)
		files[r.ID] = path
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.files = files
	s.prune()

	s.logger.Info("loaded activation history from disk", "count", len(s.records))
	return nil
}
