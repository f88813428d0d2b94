package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry is the collection of entries minted by a single activation.
// It is safe for concurrent use.
type Registry struct {
	store Store

	mu        sync.RWMutex
	campaigns map[string]bool
	slots     map[slot]bool
	entries   []Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore backs the registry's campaign namespace with a shared store.
func WithStore(store Store) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		campaigns: make(map[string]bool),
		slots:     make(map[slot]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasCampaign returns true if the campaign id is taken, either in this
// registry or in the backing store.
func (r *Registry) HasCampaign(ctx context.Context, campaignID string) (bool, error) {
	r.mu.RLock()
	local := r.campaigns[campaignID]
	r.mu.RUnlock()
	if local {
		return true, nil
	}
	if r.store == nil {
		return false, nil
	}
	taken, err := r.store.CampaignExists(ctx, campaignID)
	if err != nil {
		return false, fmt.Errorf("checking campaign %s: %w", campaignID, err)
	}
	return taken, nil
}

// ReserveCampaign claims a campaign id. It fails with a
// *MintingInvariantError if the id is already taken.
func (r *Registry) ReserveCampaign(ctx context.Context, campaignID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.campaigns[campaignID] {
		return &MintingInvariantError{Key: campaignID, Reason: "campaign id already minted"}
	}

	if r.store != nil {
		reserved, err := r.store.ReserveCampaign(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("reserving campaign %s: %w", campaignID, err)
		}
		if !reserved {
			return &MintingInvariantError{Key: campaignID, Reason: "campaign id already exists in store"}
		}
	}

	r.campaigns[campaignID] = true
	return nil
}

// Add appends an entry. The entry's campaign must have been reserved and its
// composite key must not already occupy the same slot; violations return a
// *MintingInvariantError and leave the registry unchanged.
func (r *Registry) Add(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.campaigns[e.CampaignID] {
		return &MintingInvariantError{Key: e.CompositeKey, Reason: fmt.Sprintf("campaign %s was not reserved", e.CampaignID)}
	}

	s := slotOf(e)
	if r.slots[s] {
		reason := "composite key already minted"
		if e.Type == TypeContent {
			reason = fmt.Sprintf("composite key already minted for microsegment %s", e.MicrosegmentID)
		}
		return &MintingInvariantError{Key: e.CompositeKey, Reason: reason}
	}

	r.slots[s] = true
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of all entries in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Count returns the number of entries of the given type.
func (r *Registry) Count(t EntryType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Persist writes the current entries to the backing store, if any.
func (r *Registry) Persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveEntries(ctx, r.Entries()); err != nil {
		return fmt.Errorf("persisting entries: %w", err)
	}
	return nil
}

// Activate moves every entry to ACTIVE. With a backing store the ACTIVE
// entries are saved first; if the save fails the entries stay as they were.
func (r *Registry) Activate(ctx context.Context, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		activatedAt := at
		e.Status = StatusActive
		e.ActivatedAt = &activatedAt
		active[i] = e
	}

	if r.store != nil {
		if err := r.store.SaveEntries(ctx, active); err != nil {
			return fmt.Errorf("persisting active entries: %w", err)
		}
	}
	r.entries = active
	return nil
}
