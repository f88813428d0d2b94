package mint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/registry"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func eyleaInfo() CampaignInfo {
	return CampaignInfo{
		Name:            "Eylea HCP Q4 Launch",
		Brand:           "Eylea",
		Audience:        "HCP",
		Segment:         "Retina Specialists",
		TherapeuticArea: "Ophthalmology",
		Indication:      "Wet AMD",
	}
}

func newTestMinter(reg *registry.Registry, opts ...Option) *Minter {
	base := []Option{
		WithClock(fixedClock),
		WithIDGenerator(&SequentialGenerator{Prefix: "id"}),
		WithActor("tester@example.com"),
	}
	return NewMinter(reg, append(base, opts...)...)
}

func TestMintCampaign(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	m := newTestMinter(reg)

	c, err := m.MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)

	assert.Equal(t, "CMP-EYLEA-2026-001", c.ID)
	assert.Equal(t, 2026, c.Year)
	assert.Regexp(t, KeyPattern, c.ID)

	e := c.Entry
	assert.Equal(t, registry.TypeCampaign, e.Type)
	assert.Equal(t, c.ID, e.CompositeKey)
	assert.Equal(t, registry.StatusMinted, e.Status)
	assert.Equal(t, "tester@example.com", e.MintedBy)
	assert.Equal(t, fixedNow, e.MintedAt)
	assert.Equal(t, "multi", e.UTM.Medium)
	assert.Equal(t, "eylea_hcp_q4_launch", e.UTM.Campaign)
	assert.Equal(t, "-", e.CM.NodeSeq)
	assert.Nil(t, e.SequenceNumber)

	assert.Equal(t, 1, reg.Count(registry.TypeCampaign))
}

func TestMintCampaign_SkipsTakenIDs(t *testing.T) {
	ctx := context.Background()
	store := registry.NewMemoryStore()
	for _, id := range []string{"CMP-EYLEA-2026-001", "CMP-EYLEA-2026-002"} {
		ok, err := store.ReserveCampaign(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}

	m := newTestMinter(registry.New(registry.WithStore(store)))
	c, err := m.MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)
	assert.Equal(t, "CMP-EYLEA-2026-003", c.ID)
}

func TestMintCampaign_SharedCounter(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryCounter()

	first, err := newTestMinter(registry.New(), WithCounter(counter)).MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)
	second, err := newTestMinter(registry.New(), WithCounter(counter)).MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)

	assert.Equal(t, "CMP-EYLEA-2026-001", first.ID)
	assert.Equal(t, "CMP-EYLEA-2026-002", second.ID)
}

func TestMintCampaign_RedisCounter(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := newTestMinter(registry.New(), WithCounter(NewRedisCounter(client))).MintCampaign(ctx, eyleaInfo())
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"CMP-EYLEA-2026-001", "CMP-EYLEA-2026-002", "CMP-EYLEA-2026-003"}, ids)
}

type fixedCounter int

func (f fixedCounter) Next(context.Context, string) (int, error) {
	return int(f), nil
}

type failingCounter struct{}

func (failingCounter) Next(context.Context, string) (int, error) {
	return 0, errors.New("redis: connection refused")
}

func TestMintCampaign_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		info      CampaignInfo
		counter   Counter
		invariant bool
		contains  string
	}{
		{
			name:      "counter exhausted",
			info:      eyleaInfo(),
			counter:   fixedCounter(MaxCampaignCounter + 1),
			invariant: true,
			contains:  "counter exhausted",
		},
		{
			name:      "brand without alphanumerics",
			info:      CampaignInfo{Name: "x", Brand: "®"},
			counter:   NewMemoryCounter(),
			invariant: true,
			contains:  "no letters or digits",
		},
		{
			name:     "counter failure",
			info:     eyleaInfo(),
			counter:  failingCounter{},
			contains: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New()
			_, err := newTestMinter(reg, WithCounter(tt.counter)).MintCampaign(ctx, tt.info)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.contains)
			assert.Equal(t, tt.invariant, errors.Is(err, registry.ErrMintingInvariant))
			assert.Zero(t, reg.Len())
		})
	}
}

func TestMintCampaign_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := registry.NewMemoryStore()
	_, err := store.ReserveCampaign(ctx, "CMP-EYLEA-2026-005")
	require.NoError(t, err)

	m := newTestMinter(registry.New(registry.WithStore(store)), WithCounter(fixedCounter(5)), WithMaxAttempts(3))
	_, err = m.MintCampaign(ctx, eyleaInfo())
	assert.ErrorIs(t, err, registry.ErrMintingInvariant)
	assert.ErrorContains(t, err, "after 3 attempts")
}

func mintJourney(t *testing.T, nodes []journey.Node, edges []journey.Edge, segments []journey.Microsegment) (*registry.Registry, Campaign, *Minted) {
	t.Helper()
	ctx := context.Background()
	reg := registry.New()
	m := newTestMinter(reg)

	c, err := m.MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)

	minted, err := m.MintJourney(ctx, c, journey.ComputeSequence(nodes, edges), nodes, segments)
	require.NoError(t, err)
	return reg, c, minted
}

func TestMintJourney_Linear(t *testing.T) {
	nodes := []journey.Node{
		{ID: "1", Kind: journey.KindEntry},
		{ID: "2", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-1", BaseURL: "https://hcp.example.com/eylea"}},
		{ID: "3", Kind: journey.KindWait},
		{ID: "4", Kind: journey.KindSocial},
	}
	edges := []journey.Edge{{Source: "1", Target: "2"}, {Source: "2", Target: "3"}, {Source: "3", Target: "4"}}
	segments := []journey.Microsegment{{ID: "MSEG-1"}}

	reg, c, minted := mintJourney(t, nodes, edges, segments)

	assert.Equal(t, 3, minted.SequenceCount)
	assert.Equal(t, 1, minted.ContentCount)
	assert.Equal(t, 5, reg.Len())

	var keys []string
	for _, e := range minted.Entries {
		keys = append(keys, e.CompositeKey)
		assert.Regexp(t, KeyPattern, e.CompositeKey)
		assert.Equal(t, registry.StatusMinted, e.Status)
		assert.Equal(t, c.ID, e.CampaignID)
		assert.NotEqual(t, "1", e.NodeID, "entry node is never minted")
	}
	assert.Equal(t, []string{
		c.ID + "/SEQ-1",
		c.ID + "/SEQ-1/CNT-1",
		c.ID + "/SEQ-2",
		c.ID + "/SEQ-3",
	}, keys)

	seq := minted.Entries[0]
	assert.Equal(t, "email", seq.UTM.Medium)
	assert.Equal(t, "SEQ-1", seq.UTM.Term)
	require.NotNil(t, seq.SequenceNumber)
	assert.Equal(t, 1, *seq.SequenceNumber)

	content := minted.Entries[1]
	assert.Equal(t, "CNT-1", content.ContentID)
	assert.Equal(t, "MSEG-1", content.MicrosegmentID)
	assert.Equal(t, "cnt_1", content.UTM.Content)

	require.Contains(t, minted.TrackingURLs, "2:MSEG-1")
	u, err := url.Parse(minted.TrackingURLs["2:MSEG-1"])
	require.NoError(t, err)
	assert.Equal(t, "mseg_1", u.Query().Get("cm_microsegment_id"))
	assert.Equal(t, "email", u.Query().Get("utm_medium"))
}

func TestMintJourney_ContentPerMicrosegment(t *testing.T) {
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "wait", Kind: journey.KindWait},
		{ID: "mail", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-7", BaseURL: "https://example.com/a"}},
	}
	edges := []journey.Edge{{Source: "entry", Target: "wait"}, {Source: "wait", Target: "mail"}}
	segments := []journey.Microsegment{{ID: "MSEG-1"}, {ID: "MSEG-2"}}

	_, c, minted := mintJourney(t, nodes, edges, segments)

	var content []registry.Entry
	for _, e := range minted.Entries {
		if e.Type == registry.TypeContent {
			content = append(content, e)
		}
	}
	require.Len(t, content, 2)
	for _, e := range content {
		assert.Equal(t, c.ID+"/SEQ-2/CNT-7", e.CompositeKey)
	}
	assert.Equal(t, "MSEG-1", content[0].MicrosegmentID)
	assert.Equal(t, "MSEG-2", content[1].MicrosegmentID)
	assert.NotEqual(t, DisplayKey(content[0]), DisplayKey(content[1]))
	assert.Len(t, minted.TrackingURLs, 2)
}

func TestMintJourney_Cardinality(t *testing.T) {
	tests := []struct {
		contentNodes  int
		plainNodes    int
		microsegments int
	}{
		{0, 3, 2},
		{1, 0, 0},
		{3, 2, 1},
		{5, 5, 4},
		{12, 0, 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.contentNodes, tt.microsegments), func(t *testing.T) {
			nodes := []journey.Node{{ID: "entry", Kind: journey.KindEntry}}
			var edges []journey.Edge
			for i := 0; i < tt.contentNodes; i++ {
				id := fmt.Sprintf("c%d", i)
				nodes = append(nodes, journey.Node{ID: id, Kind: journey.KindWeb, Content: &journey.ContentRef{ID: fmt.Sprintf("CNT-%d", i)}})
				edges = append(edges, journey.Edge{Source: "entry", Target: id})
			}
			for i := 0; i < tt.plainNodes; i++ {
				id := fmt.Sprintf("p%d", i)
				nodes = append(nodes, journey.Node{ID: id, Kind: journey.KindWait})
				edges = append(edges, journey.Edge{Source: "entry", Target: id})
			}
			var segments []journey.Microsegment
			for i := 0; i < tt.microsegments; i++ {
				segments = append(segments, journey.Microsegment{ID: fmt.Sprintf("MSEG-%d", i)})
			}

			reg, _, minted := mintJourney(t, nodes, edges, segments)

			assert.Equal(t, tt.contentNodes*tt.microsegments, minted.ContentCount)
			assert.Equal(t, tt.contentNodes*tt.microsegments, reg.Count(registry.TypeContent))
			assert.Equal(t, tt.contentNodes+tt.plainNodes, reg.Count(registry.TypeSequence))
			assert.Empty(t, minted.TrackingURLs, "no base urls configured")
		})
	}
}

func TestMintJourney_UnreachableNodesNotMinted(t *testing.T) {
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "a", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-A"}},
		{ID: "island", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-I"}},
		{ID: "island2", Kind: journey.KindWait},
	}
	edges := []journey.Edge{{Source: "entry", Target: "a"}, {Source: "island", Target: "island2"}}

	_, _, minted := mintJourney(t, nodes, edges, []journey.Microsegment{{ID: "MSEG-1"}})

	for _, e := range minted.Entries {
		assert.NotContains(t, []string{"island", "island2"}, e.NodeID)
	}
	assert.Equal(t, 1, minted.SequenceCount)
	assert.Equal(t, 1, minted.ContentCount)
}

func TestMintJourney_BranchesShareSequenceKey(t *testing.T) {
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "split", Kind: journey.KindABTest},
		{ID: "a", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-A"}},
		{ID: "b", Kind: journey.KindMobilePush, Content: &journey.ContentRef{ID: "CNT-B"}},
	}
	edges := []journey.Edge{{Source: "entry", Target: "split"}, {Source: "split", Target: "a"}, {Source: "split", Target: "b"}}

	_, c, minted := mintJourney(t, nodes, edges, []journey.Microsegment{{ID: "MSEG-1"}})

	var seqKeys []string
	for _, e := range minted.Entries {
		if e.Type == registry.TypeSequence && *e.SequenceNumber == 2 {
			seqKeys = append(seqKeys, e.CompositeKey)
		}
	}
	assert.Equal(t, []string{c.ID + "/SEQ-2", c.ID + "/SEQ-2"}, seqKeys)
	assert.Equal(t, 2, minted.ContentCount)
}

func TestMintJourney_DuplicateContentAtSameDepth(t *testing.T) {
	ctx := context.Background()
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "a", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-1"}},
		{ID: "b", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-1"}},
	}
	edges := []journey.Edge{{Source: "entry", Target: "a"}, {Source: "entry", Target: "b"}}

	reg := registry.New()
	m := newTestMinter(reg)
	c, err := m.MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)

	_, err = m.MintJourney(ctx, c, journey.ComputeSequence(nodes, edges), nodes, []journey.Microsegment{{ID: "MSEG-1"}})
	require.Error(t, err)

	var invErr *registry.MintingInvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, c.ID+"/SEQ-1/CNT-1", invErr.Key)
}

func TestMintJourney_InvalidBaseURL(t *testing.T) {
	ctx := context.Background()
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "a", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-1", BaseURL: "not a url"}},
	}
	edges := []journey.Edge{{Source: "entry", Target: "a"}}

	reg := registry.New()
	m := newTestMinter(reg)
	c, err := m.MintCampaign(ctx, eyleaInfo())
	require.NoError(t, err)

	_, err = m.MintJourney(ctx, c, journey.ComputeSequence(nodes, edges), nodes, []journey.Microsegment{{ID: "MSEG-1"}})
	assert.ErrorContains(t, err, "building tracking url for node a")
	assert.Equal(t, 1, reg.Len(), "nothing beyond the campaign entry is registered")
}

func TestMintJourney_CancelledContext(t *testing.T) {
	nodes := []journey.Node{
		{ID: "entry", Kind: journey.KindEntry},
		{ID: "a", Kind: journey.KindEmail},
	}
	edges := []journey.Edge{{Source: "entry", Target: "a"}}

	reg := registry.New()
	m := newTestMinter(reg)
	c, err := m.MintCampaign(context.Background(), eyleaInfo())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.MintJourney(ctx, c, journey.ComputeSequence(nodes, edges), nodes, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, reg.Len())
}

func TestMintJourney_ConcurrencyIsDeterministic(t *testing.T) {
	nodes := []journey.Node{{ID: "entry", Kind: journey.KindEntry}}
	var edges []journey.Edge
	prev := "entry"
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("n%02d", i)
		nodes = append(nodes, journey.Node{ID: id, Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-" + id}})
		edges = append(edges, journey.Edge{Source: prev, Target: id})
		if i%3 == 2 {
			prev = id
		}
	}
	segments := []journey.Microsegment{{ID: "MSEG-1"}, {ID: "MSEG-2"}}

	keysFor := func(concurrency int) []string {
		ctx := context.Background()
		reg := registry.New()
		m := newTestMinter(reg, WithConcurrency(concurrency))
		c, err := m.MintCampaign(ctx, eyleaInfo())
		require.NoError(t, err)
		minted, err := m.MintJourney(ctx, c, journey.ComputeSequence(nodes, edges), nodes, segments)
		require.NoError(t, err)

		var keys []string
		for _, e := range minted.Entries {
			keys = append(keys, e.NodeID+"|"+DisplayKey(e))
		}
		return keys
	}

	assert.Equal(t, keysFor(1), keysFor(16))
}
