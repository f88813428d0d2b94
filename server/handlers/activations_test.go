package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/server/history"
	"github.com/nomis52/journeyid/server/runner"
	"github.com/nomis52/journeyid/taxonomy"
)

type mockActivator struct {
	result *activation.Result
	err    error
	got    activation.Request
}

func (m *mockActivator) Activate(ctx context.Context, req activation.Request) (*activation.Result, error) {
	m.got = req
	return m.result, m.err
}

const requestBody = `{
  "campaignName": "Eylea HCP Q4 Launch",
  "nodes": [{"id": "1", "kind": "entry"}, {"id": "2", "kind": "email"}],
  "edges": [{"source": "1", "target": "2"}],
  "microsegments": [{"id": "MSEG-1"}],
  "brand": "Eylea",
  "audienceType": "HCP",
  "segment": "Retina Specialists",
  "therapeuticArea": "Ophthalmology"
}`

func postActivation(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/activations", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestActivateHandler_Created(t *testing.T) {
	m := &mockActivator{result: &activation.Result{
		ActivationID: "act-1",
		CampaignID:   "CMP-EYLEA-2026-001",
		Phase:        activation.PhaseComplete,
	}}
	w := postActivation(NewActivateHandler(logging.Discard(), m), requestBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "Eylea HCP Q4 Launch", m.got.CampaignName)
	assert.Equal(t, activation.AudienceHCP, m.got.Audience)
	require.Len(t, m.got.Nodes, 2)

	var res activation.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "CMP-EYLEA-2026-001", res.CampaignID)
	assert.Equal(t, activation.PhaseComplete, res.Phase)
}

func TestActivateHandler_BadBody(t *testing.T) {
	m := &mockActivator{}
	h := NewActivateHandler(logging.Discard(), m)

	for _, body := range []string{"", "{", `{"campaignName": 7}`, requestBody + "{}"} {
		w := postActivation(h, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "invalid request body")
	}
}

func TestActivateHandler_ErrorStatus(t *testing.T) {
	partial := &activation.Result{ActivationID: "act-1", Phase: activation.PhaseFailed}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation failure",
			err:  &activation.ValidationFailure{CampaignID: "CMP-EYLEA-2026-001", Issues: []taxonomy.Issue{{EntryID: "e1", Field: "cm_brand", Message: "missing"}}},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "request error",
			err:  &activation.RequestError{Field: "brand", Reason: "is required"},
			want: http.StatusBadRequest,
		},
		{
			name: "structural error",
			err:  &journey.StructuralError{Reason: "no entry node"},
			want: http.StatusBadRequest,
		},
		{
			name: "minting invariant",
			err:  &registry.MintingInvariantError{Key: "CMP-EYLEA-2026-001", Reason: "duplicate key"},
			want: http.StatusConflict,
		},
		{
			name: "export failure",
			err:  &activation.ExportFailure{CampaignID: "CMP-EYLEA-2026-001", Err: errors.New("access denied")},
			want: http.StatusBadGateway,
		},
		{
			name: "export timeout",
			err:  &activation.ExportFailure{CampaignID: "CMP-EYLEA-2026-001", Err: fmt.Errorf("%w: slow bucket", context.DeadlineExceeded)},
			want: http.StatusGatewayTimeout,
		},
		{
			name: "too many activations",
			err:  runner.ErrTooManyActivations,
			want: http.StatusTooManyRequests,
		},
		{
			name: "unknown",
			err:  errors.New("disk on fire"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockActivator{result: partial, err: tt.err}
			w := postActivation(NewActivateHandler(logging.Discard(), m), requestBody)
			assert.Equal(t, tt.want, w.Code)

			var resp ActivationErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.err.Error(), resp.Error)
			require.NotNil(t, resp.Result)
			assert.Equal(t, "act-1", resp.Result.ActivationID)
		})
	}
}

func TestActivateHandler_WithoutResult(t *testing.T) {
	m := &mockActivator{err: runner.ErrTooManyActivations}
	w := postActivation(NewActivateHandler(logging.Discard(), m), requestBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotContains(t, w.Body.String(), `"result"`)
}

type mockHistory struct {
	records []history.Record
}

func (m *mockHistory) History() []history.Summary {
	out := make([]history.Summary, len(m.records))
	for i, r := range m.records {
		out[i] = r.Summary
	}
	return out
}

func (m *mockHistory) Get(id string) (history.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return history.Record{}, history.ErrNotFound
}

func TestActivationListHandler(t *testing.T) {
	provider := &mockHistory{records: []history.Record{
		{Summary: history.Summary{ID: "b", CampaignName: "Second"}},
		{Summary: history.Summary{ID: "a", CampaignName: "First"}},
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/activations", nil)
	w := httptest.NewRecorder()
	NewActivationListHandler(provider).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var list []history.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
}

func TestActivationGetHandler(t *testing.T) {
	provider := &mockHistory{records: []history.Record{{
		Summary: history.Summary{ID: "act-1", CampaignID: "CMP-EYLEA-2026-001"},
		Result:  &activation.Result{ActivationID: "act-1"},
	}}}

	mux := http.NewServeMux()
	mux.Handle("GET /api/activations/{id}", NewActivationGetHandler(provider))

	req := httptest.NewRequest(http.MethodGet, "/api/activations/act-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var rec history.Record
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, "CMP-EYLEA-2026-001", rec.CampaignID)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "act-1", rec.Result.ActivationID)

	req = httptest.NewRequest(http.MethodGet, "/api/activations/nope", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
