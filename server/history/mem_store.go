package history

import (
	"errors"
	"sync"
)

// MemoryStore keeps history in memory only (no persistence).
type MemoryStore struct {
	maxCount int

	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates a store that keeps at most maxCount activations.
// A maxCount of zero or less keeps everything.
func NewMemoryStore(maxCount int) *MemoryStore {
	return &MemoryStore{maxCount: maxCount}
}

// List implements Store.
func (s *MemoryStore) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Summary, len(s.records))
	for i, r := range s.records {
		result[i] = r.Summary
	}
	return result
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Save implements Store.
func (s *MemoryStore) Save(r Record) error {
	if r.ID == "" {
		return errors.New("cannot save activation without an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Prepend to keep most recent first
	s.records = append([]Record{r}, s.records...)
	if s.maxCount > 0 && len(s.records) > s.maxCount {
		s.records = s.records[:s.maxCount]
	}
	return nil
}
