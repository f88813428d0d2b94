// Package runner executes activations for the journeyid server.
//
// The runner handles:
//   - Assigning activation ids
//   - Tracking in-flight activations with live step statuses and logs
//   - Bounding the number of concurrent activations
//   - Recording finished activations in the history store
//
// Each activation is executed by the orchestrator of the current pipeline,
// so a config reload takes effect on the next activation.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/activity"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/server/history"
)

// ErrTooManyActivations is returned when the concurrency limit is reached.
var ErrTooManyActivations = errors.New("too many activations in progress")

// Activator runs one activation.
type Activator interface {
	Activate(ctx context.Context, req activation.Request, opts ...activation.RunOption) (*activation.Result, error)
}

// ActivatorProvider provides the activator of the current configuration.
type ActivatorProvider interface {
	Activator() Activator
}

// Runner manages activation execution.
type Runner struct {
	logger        *slog.Logger
	provider      ActivatorProvider
	store         history.Store
	clock         func() time.Time
	maxConcurrent int

	mu       sync.Mutex
	inFlight map[string]*inFlight
}

type inFlight struct {
	id           string
	campaignName string
	brand        string
	startedAt    time.Time
	statuses     *activity.StatusHandler
	collector    *logging.LogCollector
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistoryStore records finished activations in store.
func WithHistoryStore(store history.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithMaxConcurrent bounds the number of activations running at once.
// Zero means no limit.
func WithMaxConcurrent(n int) Option {
	return func(r *Runner) {
		r.maxConcurrent = n
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// New creates a new Runner.
func New(logger *slog.Logger, provider ActivatorProvider, opts ...Option) *Runner {
	r := &Runner{
		logger:   logger.With("component", "runner"),
		provider: provider,
		store:    history.NewMemoryStore(0),
		clock:    time.Now,
		inFlight: make(map[string]*inFlight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Activate runs req to completion and records it in the history store.
// It returns the orchestrator's result and error unchanged.
func (r *Runner) Activate(ctx context.Context, req activation.Request) (*activation.Result, error) {
	f, err := r.tryStart(req)
	if err != nil {
		return nil, err
	}

	res, err := r.provider.Activator().Activate(ctx, req,
		activation.WithActivationID(f.id),
		activation.WithStatusHandler(f.statuses),
		activation.WithLogCollector(f.collector))

	r.finish(f, res, err)
	return res, err
}

// Running returns the in-flight activations, oldest first.
func (r *Runner) Running() []InFlight {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]InFlight, 0, len(r.inFlight))
	for _, f := range r.inFlight {
		result = append(result, InFlight{
			ID:           f.id,
			CampaignName: f.campaignName,
			Brand:        f.brand,
			StartedAt:    f.startedAt,
			Statuses:     f.statuses.Snapshot(),
			Logs:         f.collector.All(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

// History returns the finished activations, most recent first.
func (r *Runner) History() []history.Summary {
	return r.store.List()
}

// Get returns a finished activation.
func (r *Runner) Get(id string) (history.Record, error) {
	return r.store.Get(id)
}

func (r *Runner) tryStart(req activation.Request) (*inFlight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxConcurrent > 0 && len(r.inFlight) >= r.maxConcurrent {
		return nil, ErrTooManyActivations
	}

	f := &inFlight{
		id:           uuid.NewString(),
		campaignName: req.CampaignName,
		brand:        req.Brand,
		startedAt:    r.clock(),
		statuses:     activity.NewStatusHandler(),
		collector:    logging.NewLogCollector(),
	}
	r.inFlight[f.id] = f
	return f, nil
}

func (r *Runner) finish(f *inFlight, res *activation.Result, err error) {
	r.mu.Lock()
	delete(r.inFlight, f.id)
	r.mu.Unlock()

	ended := r.clock()
	rec := history.Record{
		Summary: history.Summary{
			ID:           f.id,
			CampaignName: f.campaignName,
			Brand:        f.brand,
			Phase:        activation.PhaseFailed,
			StartedAt:    f.startedAt,
			EndedAt:      ended,
		},
		Result: res,
		Logs:   f.collector.All(),
	}
	if res != nil {
		rec.CampaignID = res.CampaignID
		rec.Phase = res.Phase
		rec.EntryCount = len(res.Entries)
		rec.Activated = res.Activated()
	}

	duration := ended.Sub(f.startedAt)
	if err != nil {
		rec.Error = err.Error()
		r.logger.Error("activation failed", "activation_id", f.id, "error", err, "duration", duration)
	} else {
		r.logger.Info("activation completed", "activation_id", f.id, "campaign_id", rec.CampaignID, "duration", duration)
	}

	if err := r.store.Save(rec); err != nil {
		r.logger.Error("failed to save activation to history", "activation_id", f.id, "error", err)
	}
}
