package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/export"
	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/taxonomy"
)

type staticProvider struct {
	activator Activator
}

func (p staticProvider) Activator() Activator { return p.activator }

// blockingActivator waits for release before returning.
type blockingActivator struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingActivator) Activate(ctx context.Context, req activation.Request, opts ...activation.RunOption) (*activation.Result, error) {
	b.started <- struct{}{}
	<-b.release
	return &activation.Result{Phase: activation.PhaseComplete}, nil
}

func testRequest() activation.Request {
	return activation.Request{
		CampaignName: "Eylea HCP Q4 Launch",
		Nodes: []journey.Node{
			{ID: "1", Kind: journey.KindEntry},
			{ID: "2", Kind: journey.KindEmail, Content: &journey.ContentRef{ID: "CNT-1"}},
		},
		Edges:           []journey.Edge{{Source: "1", Target: "2"}},
		Microsegments:   []journey.Microsegment{{ID: "MSEG-1"}},
		Brand:           "Eylea",
		Audience:        activation.AudienceHCP,
		Segment:         "Retina Specialists",
		TherapeuticArea: "Ophthalmology",
	}
}

func newOrchestrator(t *testing.T, valid bool, exportErr error) *activation.Orchestrator {
	t.Helper()
	validator := taxonomy.ValidatorFunc(func(context.Context, []registry.Entry) (bool, error) {
		return valid, nil
	})
	exporter := export.ExporterFunc(func(ctx context.Context, m export.Manifest) (string, error) {
		if exportErr != nil {
			return "", exportErr
		}
		return "s3://journeys/" + m.ObjectKey(), nil
	})
	o, err := activation.NewOrchestrator(validator, exporter, activation.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return o
}

func TestRunner_RecordsSuccess(t *testing.T) {
	r := New(logging.Discard(), staticProvider{newOrchestrator(t, true, nil)})

	res, err := r.Activate(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, res)

	list := r.History()
	require.Len(t, list, 1)
	assert.Equal(t, res.ActivationID, list[0].ID)
	assert.Equal(t, res.CampaignID, list[0].CampaignID)
	assert.Equal(t, activation.PhaseComplete, list[0].Phase)
	assert.Equal(t, 3, list[0].EntryCount)
	assert.True(t, list[0].Activated)
	assert.Empty(t, list[0].Error)

	rec, err := r.Get(res.ActivationID)
	require.NoError(t, err)
	assert.Same(t, res, rec.Result)
	assert.NotEmpty(t, rec.Logs)
	assert.Empty(t, r.Running())
}

func TestRunner_RecordsFailure(t *testing.T) {
	r := New(logging.Discard(), staticProvider{newOrchestrator(t, true, errors.New("bucket gone"))})

	res, err := r.Activate(context.Background(), testRequest())
	var exportErr *activation.ExportFailure
	require.ErrorAs(t, err, &exportErr)

	list := r.History()
	require.Len(t, list, 1)
	assert.Equal(t, res.ActivationID, list[0].ID)
	assert.Equal(t, activation.PhaseFailed, list[0].Phase)
	assert.False(t, list[0].Activated)
	assert.Contains(t, list[0].Error, "bucket gone")
}

func TestRunner_RunningAndLimit(t *testing.T) {
	b := &blockingActivator{started: make(chan struct{}), release: make(chan struct{})}
	r := New(logging.Discard(), staticProvider{b}, WithMaxConcurrent(1))

	done := make(chan error, 1)
	go func() {
		_, err := r.Activate(context.Background(), testRequest())
		done <- err
	}()
	<-b.started

	running := r.Running()
	require.Len(t, running, 1)
	assert.Equal(t, "Eylea HCP Q4 Launch", running[0].CampaignName)
	assert.Equal(t, "Eylea", running[0].Brand)
	assert.NotEmpty(t, running[0].ID)

	_, err := r.Activate(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrTooManyActivations)

	close(b.release)
	require.NoError(t, <-done)
	assert.Empty(t, r.Running())
	assert.Len(t, r.History(), 1)
}

func TestRunner_Clock(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r := New(logging.Discard(), staticProvider{newOrchestrator(t, true, nil)},
		WithClock(func() time.Time { return now }))

	_, err := r.Activate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, r.History()[0].StartedAt.Equal(now))
}
