// Package activation runs the activation pipeline of a journey. The pipeline
// validates the request, mints the campaign and its entries, validates them
// against the taxonomy policy, exports a manifest and finally moves the
// entries to ACTIVE.
//
// Every activation builds its own registry, counter and status handler, so
// concurrent activations share nothing but the collaborators passed to the
// Orchestrator.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/journeyid/activity"
	"github.com/nomis52/journeyid/export"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/metrics"
	"github.com/nomis52/journeyid/mint"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/taxonomy"
	"github.com/nomis52/journeyid/workflow"
)

const (
	DefaultValidationTimeout = 10 * time.Second
	DefaultExportTimeout     = 30 * time.Second
)

// Orchestrator activates journeys.
type Orchestrator struct {
	validator         taxonomy.Validator
	exporter          export.Exporter
	counter           mint.Counter
	store             registry.Store
	ids               mint.IDGenerator
	clock             func() time.Time
	actor             string
	concurrency       int
	maxAttempts       int
	validationTimeout time.Duration
	exportTimeout     time.Duration
	metrics           *metrics.ActivationMetrics
	logger            *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCounter shares a campaign counter between activations. Without it each
// activation counts from 1 on its own.
func WithCounter(c mint.Counter) Option {
	return func(o *Orchestrator) {
		o.counter = c
	}
}

// WithStore backs every activation's registry with store.
func WithStore(store registry.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithIDGenerator sets the generator for entry and activation ids.
func WithIDGenerator(g mint.IDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = g
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithActor sets the mintedBy value of new entries.
func WithActor(actor string) Option {
	return func(o *Orchestrator) {
		o.actor = actor
	}
}

// WithConcurrency bounds parallel entry construction.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithMaxAttempts bounds the search for a free campaign id.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		o.maxAttempts = n
	}
}

// WithValidationTimeout bounds the taxonomy validator call.
func WithValidationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.validationTimeout = d
		}
	}
}

// WithExportTimeout bounds the manifest export.
func WithExportTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.exportTimeout = d
		}
	}
}

// WithMetrics records activation outcomes.
func WithMetrics(m *metrics.ActivationMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "activation")
	}
}

// NewOrchestrator creates an Orchestrator. The validator and exporter are
// required.
func NewOrchestrator(validator taxonomy.Validator, exporter export.Exporter, opts ...Option) (*Orchestrator, error) {
	if validator == nil {
		return nil, errors.New("activation requires a taxonomy validator")
	}
	if exporter == nil {
		return nil, errors.New("activation requires a manifest exporter")
	}

	o := &Orchestrator{
		validator:         validator,
		exporter:          exporter,
		ids:               mint.UUIDGenerator{},
		clock:             time.Now,
		actor:             mint.DefaultActor,
		concurrency:       mint.DefaultConcurrency,
		maxAttempts:       mint.DefaultMaxAttempts,
		validationTimeout: DefaultValidationTimeout,
		exportTimeout:     DefaultExportTimeout,
		logger:            slog.Default().With("component", "activation"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunOption configures a single activation.
type RunOption func(*runConfig)

type runConfig struct {
	activationID string
	statuses     *activity.StatusHandler
	collector    *logging.LogCollector
}

// WithActivationID fixes the id of the activation instead of generating one.
func WithActivationID(id string) RunOption {
	return func(c *runConfig) {
		c.activationID = id
	}
}

// WithStatusHandler publishes step status messages to h while the
// activation runs.
func WithStatusHandler(h *activity.StatusHandler) RunOption {
	return func(c *runConfig) {
		c.statuses = h
	}
}

// WithLogCollector captures the log records of every step, keyed by the
// short step name.
func WithLogCollector(collector *logging.LogCollector) RunOption {
	return func(c *runConfig) {
		c.collector = collector
	}
}

// MintIDsAndActivate activates req using o. Retrying a failed activation
// mints a new campaign id only when o shares a Counter (WithCounter) or a
// Store (WithStore) across calls; without either, every call starts from a
// private counter and can produce the same id again.
func MintIDsAndActivate(ctx context.Context, o *Orchestrator, req Request) (*Result, error) {
	if o == nil {
		return nil, errors.New("activation orchestrator is nil")
	}
	return o.Activate(ctx, req)
}

// Activate runs the activation pipeline for req. The returned Result is
// never nil; when err is non-nil it holds the partial state reached, with
// Phase FAILED and any minted entries still MINTED.
func (o *Orchestrator) Activate(ctx context.Context, req Request, opts ...RunOption) (*Result, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.activationID == "" {
		rc.activationID = o.ids.NewID()
	}
	if rc.statuses == nil {
		rc.statuses = activity.NewStatusHandler()
	}

	logger := o.logger.With("activation_id", rc.activationID)

	counter := o.counter
	if counter == nil {
		counter = mint.NewMemoryCounter()
	}
	var regOpts []registry.Option
	if o.store != nil {
		regOpts = append(regOpts, registry.WithStore(o.store))
	}
	reg := registry.New(regOpts...)

	r := &run{
		id:       rc.activationID,
		req:      req,
		cfg:      o,
		statuses: rc.statuses,
		registry: reg,
		phase: newPhaseTracker(func(from, to Phase) {
			logger.Debug("phase changed", "from", from, "to", to)
		}),
		minter: mint.NewMinter(reg,
			mint.WithCounter(counter),
			mint.WithIDGenerator(o.ids),
			mint.WithClock(o.clock),
			mint.WithActor(o.actor),
			mint.WithConcurrency(o.concurrency),
			mint.WithMaxAttempts(o.maxAttempts),
			mint.WithLogger(logger),
		),
	}

	wfOpts := []workflow.OrchestratorOption{
		workflow.WithLogger(logger),
		workflow.WithClock(o.clock),
	}
	if rc.collector != nil {
		wfOpts = append(wfOpts, workflow.WithLoggerHook(logging.NewCaptureHook(rc.collector)))
	}
	wf := workflow.NewOrchestrator(wfOpts...)
	if err := wf.AddActivity(r.steps()...); err != nil {
		return &Result{ActivationID: rc.activationID, Phase: PhaseFailed, Entries: []registry.Entry{}, TrackingURLs: map[string]string{}},
			fmt.Errorf("building activation pipeline: %w", err)
	}

	logger.Info("starting activation",
		"campaign_name", req.CampaignName,
		"brand", req.Brand,
		"nodes", len(req.Nodes),
		"microsegments", len(req.Microsegments))

	err := wf.Execute(ctx)
	if err != nil {
		r.phase.fail()
		err = stepError(wf, err)
	}

	result := r.result(wf)
	o.record(result, r.phase.failedPhase(), err)

	if err != nil {
		logger.Error("activation failed",
			"campaign_id", result.CampaignID,
			"failed_in", r.phase.failedPhase(),
			"entries", len(result.Entries),
			"error", err)
		return result, err
	}
	logger.Info("activation complete",
		"campaign_id", result.CampaignID,
		"entries", len(result.Entries),
		"export_path", result.S3ExportPath,
		"force_activated", result.ForceActivated)
	return result, nil
}

// stepError returns the error of the step that failed, without the
// orchestrator's wrapping. Cancellation errors are returned as is.
func stepError(wf *workflow.Orchestrator, err error) error {
	for _, s := range wf.Results() {
		if s.Result.State == workflow.Completed && s.Result.Error != nil {
			return s.Result.Error
		}
	}
	return err
}

func (r *run) result(wf *workflow.Orchestrator) *Result {
	res := &Result{
		ActivationID:      r.id,
		CampaignID:        r.campaign.ID,
		ActivatedAt:       r.activatedAt,
		Entries:           r.registry.Entries(),
		S3ExportPath:      r.exportPath,
		SequenceCount:     r.registry.Count(registry.TypeSequence),
		MicrosegmentCount: len(r.req.Microsegments),
		TrackingURLs:      map[string]string{},
		Phase:             r.phase.get(),
		EditingNodeID:     r.req.EditingNodeID,
		UnreachableNodes:  r.unreachable,
		ForceActivated:    r.forced,
	}
	if res.Entries == nil {
		res.Entries = []registry.Entry{}
	}
	if r.minted != nil {
		for k, v := range r.minted.TrackingURLs {
			res.TrackingURLs[k] = v
		}
	}
	if r.report != nil {
		res.Validated = r.report.Valid
		res.ValidationIssues = r.report.Issues
	}

	for _, s := range wf.Results() {
		step := StepStatus{
			Step:      s.ID.ShortString(),
			State:     s.Result.State.String(),
			Status:    r.statuses.Get(s.ID),
			StartTime: s.Result.StartTime,
			EndTime:   s.Result.EndTime,
		}
		if s.Result.Error != nil {
			step.Error = s.Result.Error.Error()
		}
		res.Steps = append(res.Steps, step)
	}
	return res
}

func (o *Orchestrator) record(res *Result, failedIn Phase, err error) {
	if o.metrics == nil {
		return
	}
	for _, t := range []registry.EntryType{registry.TypeCampaign, registry.TypeSequence, registry.TypeContent} {
		n := 0
		for _, e := range res.Entries {
			if e.Type == t {
				n++
			}
		}
		o.metrics.RecordEntries(string(t), n)
	}
	o.metrics.SetLastEntries(len(res.Entries))

	switch {
	case err == nil && res.ForceActivated:
		o.metrics.RecordOutcome(metrics.OutcomeForceActivated)
	case err == nil:
		o.metrics.RecordOutcome(metrics.OutcomeActivated)
	case errors.Is(err, ErrValidationFailed):
		o.metrics.RecordOutcome(metrics.OutcomeValidationFailed)
	default:
		o.metrics.RecordOutcome(metrics.OutcomeFailed)
		o.metrics.RecordPhaseFailure(string(failedIn))
	}
}
