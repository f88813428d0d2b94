// Package mint generates campaign ids, composite keys and tracking URLs for
// a sequenced journey and records them in a registry.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/params"
	"github.com/nomis52/journeyid/registry"
)

const (
	// DefaultActor is recorded as mintedBy when no actor is configured.
	DefaultActor = "system"
	// DefaultConcurrency bounds how many nodes are minted in parallel.
	DefaultConcurrency = 8
	// DefaultMaxAttempts bounds the campaign id search.
	DefaultMaxAttempts = 50
)

// CampaignInfo is the descriptive metadata of a campaign.
type CampaignInfo struct {
	Name            string
	Brand           string
	Audience        string
	Segment         string
	TherapeuticArea string
	Indication      string
}

// Campaign is a minted campaign.
type Campaign struct {
	ID    string
	Year  int
	Info  CampaignInfo
	Entry registry.Entry
}

// Minted is the output of MintJourney.
type Minted struct {
	// Entries holds the SEQUENCE and CONTENT entries in registry order.
	Entries []registry.Entry
	// TrackingURLs is keyed by "{nodeId}:{microsegmentId}".
	TrackingURLs  map[string]string
	SequenceCount int
	ContentCount  int
}

// TrackingURLKey returns the key of a tracking URL in Minted.TrackingURLs.
func TrackingURLKey(nodeID, microsegmentID string) string {
	return nodeID + ":" + microsegmentID
}

// Minter mints entries into a single registry.
type Minter struct {
	registry    *registry.Registry
	counter     Counter
	ids         IDGenerator
	clock       func() time.Time
	actor       string
	concurrency int
	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Minter.
type Option func(*Minter)

// WithCounter sets the campaign counter. The default is a private MemoryCounter.
func WithCounter(c Counter) Option {
	return func(m *Minter) {
		m.counter = c
	}
}

// WithIDGenerator sets the entry id generator. The default generates UUIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Minter) {
		m.ids = g
	}
}

// WithClock sets the time source used for mintedAt and the campaign year.
func WithClock(clock func() time.Time) Option {
	return func(m *Minter) {
		m.clock = clock
	}
}

// WithActor sets the mintedBy value.
func WithActor(actor string) Option {
	return func(m *Minter) {
		if actor != "" {
			m.actor = actor
		}
	}
}

// WithConcurrency bounds the number of nodes minted in parallel.
func WithConcurrency(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithMaxAttempts bounds how many counter values MintCampaign tries.
func WithMaxAttempts(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Minter) {
		m.logger = logger
	}
}

// NewMinter creates a minter writing into reg.
func NewMinter(reg *registry.Registry, opts ...Option) *Minter {
	m := &Minter{
		registry:    reg,
		counter:     NewMemoryCounter(),
		ids:         UUIDGenerator{},
		clock:       time.Now,
		actor:       DefaultActor,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "minter")
	return m
}

// MintCampaign reserves a new campaign id and adds the CAMPAIGN entry.
//
// Counter values whose id is already taken are skipped. Running past
// MaxCampaignCounter, or failing to find a free id within the attempt bound,
// returns a *registry.MintingInvariantError.
func (m *Minter) MintCampaign(ctx context.Context, info CampaignInfo) (Campaign, error) {
	brandCode := BrandCode(info.Brand)
	if brandCode == "" {
		return Campaign{}, &registry.MintingInvariantError{Key: info.Brand, Reason: "brand has no letters or digits"}
	}

	now := m.clock()
	year := now.Year()
	namespace := CounterNamespace(brandCode, year)

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		n, err := m.counter.Next(ctx, namespace)
		if err != nil {
			return Campaign{}, fmt.Errorf("allocating campaign counter: %w", err)
		}
		if n > MaxCampaignCounter {
			return Campaign{}, &registry.MintingInvariantError{Key: namespace, Reason: "counter exhausted"}
		}

		id := CampaignID(brandCode, year, n)
		taken, err := m.registry.HasCampaign(ctx, id)
		if err != nil {
			return Campaign{}, err
		}
		if taken {
			m.logger.Debug("campaign id taken, trying next", "campaign_id", id)
			continue
		}

		if err := m.registry.ReserveCampaign(ctx, id); err != nil {
			if errors.Is(err, registry.ErrMintingInvariant) {
				// Reserved by someone else between the check and the insert.
				m.logger.Debug("lost campaign id race", "campaign_id", id)
				continue
			}
			return Campaign{}, err
		}

		c := Campaign{ID: id, Year: year, Info: info}
		pctx := c.paramContext()
		c.Entry = registry.Entry{
			ID:           m.ids.NewID(),
			Type:         registry.TypeCampaign,
			CompositeKey: id,
			CampaignID:   id,
			Status:       registry.StatusMinted,
			UTM:          params.BuildUTM(params.LevelCampaign, pctx),
			CM:           params.BuildCM(params.LevelCampaign, pctx),
			MintedAt:     now,
			MintedBy:     m.actor,
		}
		if err := m.registry.Add(c.Entry); err != nil {
			return Campaign{}, err
		}

		m.logger.Info("minted campaign", "campaign_id", id)
		return c, nil
	}

	return Campaign{}, &registry.MintingInvariantError{
		Key:    namespace,
		Reason: fmt.Sprintf("no free campaign id after %d attempts", m.maxAttempts),
	}
}

func (c Campaign) paramContext() params.Context {
	return params.Context{
		CampaignName:    c.Info.Name,
		CampaignID:      c.ID,
		Brand:           c.Info.Brand,
		Audience:        c.Info.Audience,
		Segment:         c.Info.Segment,
		TherapeuticArea: c.Info.TherapeuticArea,
		Indication:      c.Info.Indication,
	}
}

// nodeOutput is everything minted for one node.
type nodeOutput struct {
	sequence registry.Entry
	content  []registry.Entry
	urls     map[string]string
}

// MintJourney mints one SEQUENCE entry for every sequenced node other than
// the entry node, and one CONTENT entry for every pair of content-bearing
// node and microsegment. Nodes that are not in seq are skipped.
//
// Nodes are built concurrently and then added to the registry ordered by
// sequence number and node id. The first registry conflict aborts minting.
func (m *Minter) MintJourney(ctx context.Context, c Campaign, seq journey.SequenceMap, nodes []journey.Node, microsegments []journey.Microsegment) (*Minted, error) {
	entryID, _ := journey.FindEntry(nodes)

	var targets []journey.Node
	for _, n := range nodes {
		if n.ID == entryID || !seq.Contains(n.ID) {
			continue
		}
		targets = append(targets, n)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		si, sj := seq[targets[i].ID], seq[targets[j].ID]
		if si != sj {
			return si < sj
		}
		return targets[i].ID < targets[j].ID
	})

	now := m.clock()
	outputs := make([]nodeOutput, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, n := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := m.mintNode(c, n, seq[n.ID], microsegments, now)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	minted := &Minted{TrackingURLs: make(map[string]string)}
	for _, out := range outputs {
		if err := m.registry.Add(out.sequence); err != nil {
			return minted, err
		}
		minted.Entries = append(minted.Entries, out.sequence)
		minted.SequenceCount++

		for _, e := range out.content {
			if err := m.registry.Add(e); err != nil {
				return minted, err
			}
			minted.Entries = append(minted.Entries, e)
			minted.ContentCount++
		}
		for k, v := range out.urls {
			minted.TrackingURLs[k] = v
		}
	}

	m.logger.Info("minted journey entries",
		"campaign_id", c.ID,
		"sequence_entries", minted.SequenceCount,
		"content_entries", minted.ContentCount,
		"tracking_urls", len(minted.TrackingURLs))
	return minted, nil
}

// mintNode builds the entries of a single node without touching the registry.
func (m *Minter) mintNode(c Campaign, n journey.Node, seqNum int, microsegments []journey.Microsegment, now time.Time) (nodeOutput, error) {
	pctx := c.paramContext()
	pctx.Kind = n.Kind
	pctx.Sequence = seqNum

	seqKey := SequenceKey(c.ID, seqNum)
	out := nodeOutput{
		sequence: registry.Entry{
			ID:             m.ids.NewID(),
			Type:           registry.TypeSequence,
			CompositeKey:   seqKey,
			CampaignID:     c.ID,
			Status:         registry.StatusMinted,
			UTM:            params.BuildUTM(params.LevelSequence, pctx),
			CM:             params.BuildCM(params.LevelSequence, pctx),
			SequenceNumber: intPtr(seqNum),
			NodeID:         n.ID,
			MintedAt:       now,
			MintedBy:       m.actor,
		},
		urls: make(map[string]string),
	}

	if !n.HasContent() {
		return out, nil
	}

	contentKey := ContentKey(seqKey, n.Content.ID)
	if !KeyPattern.MatchString(contentKey) {
		return out, &registry.MintingInvariantError{Key: contentKey, Reason: "key does not match the composite key grammar"}
	}

	pctx.ContentID = n.Content.ID
	for _, ms := range microsegments {
		pctx.MicrosegmentID = ms.ID
		utm := params.BuildUTM(params.LevelContent, pctx)
		cm := params.BuildCM(params.LevelContent, pctx)

		out.content = append(out.content, registry.Entry{
			ID:             m.ids.NewID(),
			Type:           registry.TypeContent,
			CompositeKey:   contentKey,
			CampaignID:     c.ID,
			Status:         registry.StatusMinted,
			UTM:            utm,
			CM:             cm,
			SequenceNumber: intPtr(seqNum),
			NodeID:         n.ID,
			ContentID:      n.Content.ID,
			MicrosegmentID: ms.ID,
			MintedAt:       now,
			MintedBy:       m.actor,
		})

		if n.Content.BaseURL == "" {
			continue
		}
		u, err := params.TrackingURL(n.Content.BaseURL, utm, cm)
		if err != nil {
			return out, fmt.Errorf("building tracking url for node %s: %w", n.ID, err)
		}
		out.urls[TrackingURLKey(n.ID, ms.ID)] = u
	}

	return out, nil
}

func intPtr(n int) *int {
	return &n
}
