package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int {
	return &n
}

func TestRegistry_ReserveCampaign(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.ReserveCampaign(ctx, "CMP-EYLEA-2026-001"))

	err := r.ReserveCampaign(ctx, "CMP-EYLEA-2026-001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMintingInvariant))

	var invErr *MintingInvariantError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "CMP-EYLEA-2026-001", invErr.Key)

	taken, err := r.HasCampaign(ctx, "CMP-EYLEA-2026-001")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = r.HasCampaign(ctx, "CMP-EYLEA-2026-002")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestRegistry_SharedStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := New(WithStore(store))
	second := New(WithStore(store))

	require.NoError(t, first.ReserveCampaign(ctx, "CMP-X-2026-001"))

	taken, err := second.HasCampaign(ctx, "CMP-X-2026-001")
	require.NoError(t, err)
	assert.True(t, taken)

	err = second.ReserveCampaign(ctx, "CMP-X-2026-001")
	assert.ErrorIs(t, err, ErrMintingInvariant)

	require.NoError(t, second.ReserveCampaign(ctx, "CMP-X-2026-002"))
}

func TestRegistry_Add(t *testing.T) {
	ctx := context.Background()
	cid := "CMP-EYLEA-2026-001"

	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{
			name: "campaign then sequence",
			entries: []Entry{
				{ID: "1", Type: TypeCampaign, CompositeKey: cid, CampaignID: cid},
				{ID: "2", Type: TypeSequence, CompositeKey: cid + "/SEQ-1", CampaignID: cid, NodeID: "n1", SequenceNumber: intPtr(1)},
			},
		},
		{
			name: "sibling nodes share a sequence key",
			entries: []Entry{
				{ID: "1", Type: TypeSequence, CompositeKey: cid + "/SEQ-2", CampaignID: cid, NodeID: "a"},
				{ID: "2", Type: TypeSequence, CompositeKey: cid + "/SEQ-2", CampaignID: cid, NodeID: "b"},
			},
		},
		{
			name: "same node minted twice",
			entries: []Entry{
				{ID: "1", Type: TypeSequence, CompositeKey: cid + "/SEQ-2", CampaignID: cid, NodeID: "a"},
				{ID: "2", Type: TypeSequence, CompositeKey: cid + "/SEQ-2", CampaignID: cid, NodeID: "a"},
			},
			wantErr: true,
		},
		{
			name: "content key shared across microsegments",
			entries: []Entry{
				{ID: "1", Type: TypeContent, CompositeKey: cid + "/SEQ-1/CNT-1", CampaignID: cid, MicrosegmentID: "MSEG-1"},
				{ID: "2", Type: TypeContent, CompositeKey: cid + "/SEQ-1/CNT-1", CampaignID: cid, MicrosegmentID: "MSEG-2"},
			},
		},
		{
			name: "content key repeated for one microsegment",
			entries: []Entry{
				{ID: "1", Type: TypeContent, CompositeKey: cid + "/SEQ-1/CNT-1", CampaignID: cid, MicrosegmentID: "MSEG-1"},
				{ID: "2", Type: TypeContent, CompositeKey: cid + "/SEQ-1/CNT-1", CampaignID: cid, MicrosegmentID: "MSEG-1"},
			},
			wantErr: true,
		},
		{
			name: "duplicate campaign entry",
			entries: []Entry{
				{ID: "1", Type: TypeCampaign, CompositeKey: cid, CampaignID: cid},
				{ID: "2", Type: TypeCampaign, CompositeKey: cid, CampaignID: cid},
			},
			wantErr: true,
		},
		{
			name: "unreserved campaign",
			entries: []Entry{
				{ID: "1", Type: TypeCampaign, CompositeKey: "CMP-OTHER-2026-001", CampaignID: "CMP-OTHER-2026-001"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			require.NoError(t, r.ReserveCampaign(ctx, cid))

			var err error
			for _, e := range tt.entries {
				if err = r.Add(e); err != nil {
					break
				}
			}

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMintingInvariant)
				assert.Less(t, r.Len(), len(tt.entries))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, len(tt.entries), r.Len())
			}
		})
	}
}

func TestRegistry_EntriesIsCopy(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.ReserveCampaign(ctx, "CMP-A-2026-001"))
	require.NoError(t, r.Add(Entry{ID: "1", Type: TypeCampaign, CompositeKey: "CMP-A-2026-001", CampaignID: "CMP-A-2026-001", Status: StatusMinted}))

	entries := r.Entries()
	entries[0].Status = StatusActive

	assert.Equal(t, StatusMinted, r.Entries()[0].Status)
	assert.Equal(t, 1, r.Count(TypeCampaign))
	assert.Equal(t, 0, r.Count(TypeContent))
}

func TestRegistry_ActivateAndPersist(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := New(WithStore(store))
	cid := "CMP-A-2026-001"

	require.NoError(t, r.ReserveCampaign(ctx, cid))
	require.NoError(t, r.Add(Entry{ID: "1", Type: TypeCampaign, CompositeKey: cid, CampaignID: cid, Status: StatusMinted}))
	require.NoError(t, r.Persist(ctx))

	stored, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusMinted, stored[0].Status)

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Activate(ctx, at))
	assert.Equal(t, StatusActive, r.Entries()[0].Status)

	stored, err = store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusActive, stored[0].Status)
	require.NotNil(t, stored[0].ActivatedAt)
	assert.Equal(t, at, *stored[0].ActivatedAt)
}

type failingSaveStore struct {
	*MemoryStore
	saves  int
	failOn int
}

func (s *failingSaveStore) SaveEntries(ctx context.Context, entries []Entry) error {
	s.saves++
	if s.saves == s.failOn {
		return errors.New("db down")
	}
	return s.MemoryStore.SaveEntries(ctx, entries)
}

func TestRegistry_ActivateSaveFails(t *testing.T) {
	ctx := context.Background()
	store := &failingSaveStore{MemoryStore: NewMemoryStore(), failOn: 2}
	r := New(WithStore(store))
	cid := "CMP-A-2026-001"

	require.NoError(t, r.ReserveCampaign(ctx, cid))
	require.NoError(t, r.Add(Entry{ID: "1", Type: TypeCampaign, CompositeKey: cid, CampaignID: cid, Status: StatusMinted}))
	require.NoError(t, r.Persist(ctx))

	err := r.Activate(ctx, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusMinted, entries[0].Status)
	assert.Nil(t, entries[0].ActivatedAt)

	stored, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusMinted, stored[0].Status)
}

func TestRegistry_PersistWithoutStore(t *testing.T) {
	assert.NoError(t, New().Persist(context.Background()))
}

func TestMemoryStore_EntriesOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveEntries(ctx, []Entry{
		{ID: "c", MintedAt: base.Add(2 * time.Second)},
		{ID: "b", MintedAt: base},
		{ID: "a", MintedAt: base},
	}))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
