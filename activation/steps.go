package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/journeyid/activity"
	"github.com/nomis52/journeyid/export"
	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/mint"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/taxonomy"
	"github.com/nomis52/journeyid/workflow"
)

// run is the state shared by the steps of one activation.
type run struct {
	id       string
	req      Request
	cfg      *Orchestrator
	phase    *phaseTracker
	statuses *activity.StatusHandler
	registry *registry.Registry
	minter   *mint.Minter

	campaign    mint.Campaign
	seq         journey.SequenceMap
	unreachable []string
	minted      *mint.Minted
	report      *taxonomy.Report
	exportPath  string
	activatedAt *time.Time
	forced      bool
}

// steps returns the activation pipeline in execution order.
func (r *run) steps() []workflow.Activity {
	steps := []workflow.Activity{
		&ValidateStructure{},
		&MintCampaign{},
		&ComputeSequence{},
		&MintEntries{},
		&ExternalValidation{},
		&Export{},
		&Finalize{},
	}
	for _, s := range steps {
		s.(interface {
			bind(*run, workflow.ActivityID)
		}).bind(r, workflow.GetActivityID(s))
	}
	return steps
}

// stepBase carries what every step needs: the shared run, a logger and a
// status line.
type stepBase struct {
	run    *run
	id     workflow.ActivityID
	logger *slog.Logger
	status *activity.StatusLine
}

func (b *stepBase) bind(r *run, id workflow.ActivityID) {
	b.run = r
	b.id = id
}

func (b *stepBase) Init() error {
	if b.run == nil {
		return fmt.Errorf("%s is not bound to an activation", b.id.ShortString())
	}
	if b.logger == nil {
		b.SetLogger(slog.Default())
	}
	return nil
}

func (b *stepBase) SetLogger(logger *slog.Logger) {
	b.logger = logger
	b.status = activity.NewStatusLine(b.id, logger, b.run.statuses)
}

// ValidateStructure checks the request and the journey graph.
type ValidateStructure struct {
	stepBase
}

func (s *ValidateStructure) Execute(ctx context.Context) error {
	if err := s.run.phase.advance(PhaseValidating); err != nil {
		return err
	}
	return activity.CaptureError(s.status, func() error {
		if err := s.run.req.Validate(); err != nil {
			return err
		}
		s.status.Setf("request valid: %d nodes, %d edges, %d microsegments",
			len(s.run.req.Nodes), len(s.run.req.Edges), len(s.run.req.Microsegments))
		return nil
	})
}

// MintCampaign allocates the campaign id and mints the CAMPAIGN entry.
type MintCampaign struct {
	stepBase
}

func (s *MintCampaign) Execute(ctx context.Context) error {
	if err := s.run.phase.advance(PhaseMinting); err != nil {
		return err
	}
	return activity.CaptureError(s.status, func() error {
		c, err := s.run.minter.MintCampaign(ctx, s.run.req.campaignInfo())
		if err != nil {
			return err
		}
		s.run.campaign = c
		s.logger.Info("minted campaign", "campaign_id", c.ID, "key", c.Entry.CompositeKey)
		s.status.Setf("minted campaign %s", c.ID)
		return nil
	})
}

// ComputeSequence numbers the nodes reachable from the entry node.
type ComputeSequence struct {
	stepBase
}

func (s *ComputeSequence) Execute(ctx context.Context) error {
	r := s.run
	r.seq = journey.ComputeSequence(r.req.Nodes, r.req.Edges)
	r.unreachable = journey.Unreachable(r.req.Nodes, r.seq)
	if len(r.unreachable) > 0 {
		s.logger.Warn("nodes unreachable from the entry node will not be minted",
			"campaign_id", r.campaign.ID, "nodes", r.unreachable)
	}
	s.status.Setf("sequenced %d of %d nodes", len(r.seq), len(r.req.Nodes))
	return nil
}

// MintEntries mints the SEQUENCE and CONTENT entries and stores them as MINTED.
type MintEntries struct {
	stepBase
}

func (s *MintEntries) Execute(ctx context.Context) error {
	r := s.run
	return activity.CaptureError(s.status, func() error {
		minted, err := r.minter.MintJourney(ctx, r.campaign, r.seq, r.req.Nodes, r.req.Microsegments)
		r.minted = minted
		if err != nil {
			return err
		}
		if err := r.registry.Persist(ctx); err != nil {
			return fmt.Errorf("persisting minted entries: %w", err)
		}
		s.logger.Info("minted entries", "campaign_id", r.campaign.ID,
			"sequence", minted.SequenceCount, "content", minted.ContentCount)
		s.status.Setf("minted %d sequence and %d content entries", minted.SequenceCount, minted.ContentCount)
		return nil
	})
}

// ExternalValidation checks the minted entries against the taxonomy policy.
// A failing report does not stop the pipeline; Finalize decides what it means.
type ExternalValidation struct {
	stepBase
}

func (s *ExternalValidation) Execute(ctx context.Context) error {
	r := s.run
	if err := r.phase.advance(PhaseExternalValidation); err != nil {
		return err
	}
	return activity.CaptureError(s.status, func() error {
		vctx, cancel := context.WithTimeout(ctx, r.cfg.validationTimeout)
		defer cancel()

		report, err := r.cfg.validator.Validate(vctx, r.registry.Entries())
		if err != nil {
			return fmt.Errorf("validating entries of %s: %w", r.campaign.ID, err)
		}
		r.report = &report

		if !report.Valid {
			s.logger.Warn("taxonomy validation failed",
				"campaign_id", r.campaign.ID, "issues", len(report.Issues))
			s.status.Setf("validation failed with %d issues", len(report.Issues))
			return nil
		}
		s.status.Setf("validated %d entries", report.Checked)
		return nil
	})
}

// Export writes the activation manifest.
type Export struct {
	stepBase
}

func (s *Export) Execute(ctx context.Context) error {
	r := s.run
	if err := r.phase.advance(PhaseExporting); err != nil {
		return err
	}
	return activity.CaptureError(s.status, func() error {
		m := export.Manifest{
			Kind:              export.KindActivation,
			ActivationID:      r.id,
			CampaignID:        r.campaign.ID,
			CampaignName:      r.req.CampaignName,
			Brand:             r.req.Brand,
			GeneratedAt:       r.cfg.clock(),
			Validated:         r.report != nil && r.report.Valid,
			SequenceCount:     r.registry.Count(registry.TypeSequence),
			MicrosegmentCount: len(r.req.Microsegments),
			Entries:           r.registry.Entries(),
		}
		if r.minted != nil {
			m.TrackingURLs = r.minted.TrackingURLs
		}

		ectx, cancel := context.WithTimeout(ctx, r.cfg.exportTimeout)
		defer cancel()

		path, err := r.cfg.exporter.ExportManifest(ectx, m)
		if err != nil {
			if errors.Is(ectx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
			return &ExportFailure{CampaignID: r.campaign.ID, Err: err}
		}
		r.exportPath = path
		s.logger.Info("exported manifest", "campaign_id", r.campaign.ID, "path", path)
		s.status.Setf("exported manifest to %s", path)
		return nil
	})
}

// Finalize activates the entries when validation passed or was overridden.
type Finalize struct {
	stepBase
}

func (s *Finalize) Execute(ctx context.Context) error {
	r := s.run
	return activity.CaptureError(s.status, func() error {
		valid := r.report != nil && r.report.Valid
		if !valid && !r.req.ForceActivate {
			var issues []taxonomy.Issue
			if r.report != nil {
				issues = r.report.Issues
			}
			return &ValidationFailure{CampaignID: r.campaign.ID, Issues: issues}
		}

		if !valid {
			s.logger.Warn("activating entries that failed validation", "campaign_id", r.campaign.ID)
		}

		now := r.cfg.clock()
		if err := r.registry.Activate(ctx, now); err != nil {
			return err
		}
		r.activatedAt = &now
		r.forced = !valid
		if err := r.phase.advance(PhaseComplete); err != nil {
			return err
		}
		s.status.Setf("activated %d entries", r.registry.Len())
		return nil
	})
}
