package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists the registry namespace across activations.
type Store interface {
	// ReserveCampaign atomically claims a campaign id. It returns false if the
	// id was already reserved.
	ReserveCampaign(ctx context.Context, campaignID string) (bool, error)
	// CampaignExists returns true if the id has been reserved.
	CampaignExists(ctx context.Context, campaignID string) (bool, error)
	// SaveEntries inserts or replaces entries by id.
	SaveEntries(ctx context.Context, entries []Entry) error
	// Entries returns every stored entry ordered by mint time.
	Entries(ctx context.Context) ([]Entry, error)
}

// MemoryStore is a Store that lives for the lifetime of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]time.Time
	entries   map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]time.Time),
		entries:   make(map[string]Entry),
	}
}

// ReserveCampaign implements Store.
func (s *MemoryStore) ReserveCampaign(_ context.Context, campaignID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaignID]; ok {
		return false, nil
	}
	s.campaigns[campaignID] = time.Now()
	return true, nil
}

// CampaignExists implements Store.
func (s *MemoryStore) CampaignExists(_ context.Context, campaignID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.campaigns[campaignID]
	return ok, nil
}

// SaveEntries implements Store.
func (s *MemoryStore) SaveEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// Entries implements Store.
func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].MintedAt.Equal(result[j].MintedAt) {
			return result[i].MintedAt.Before(result[j].MintedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
