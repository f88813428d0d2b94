// Package history records finished activations for the server's history
// endpoints.
package history

import (
	"errors"
	"time"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/logging"
)

// ErrNotFound is returned for unknown activation ids.
var ErrNotFound = errors.New("activation not found")

// Summary describes one finished activation.
type Summary struct {
	ID           string           `json:"id"`
	CampaignID   string           `json:"campaign_id,omitempty"`
	CampaignName string           `json:"campaign_name"`
	Brand        string           `json:"brand"`
	Phase        activation.Phase `json:"phase"`
	EntryCount   int              `json:"entry_count"`
	Activated    bool             `json:"activated"`
	Error        string           `json:"error,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      time.Time        `json:"ended_at"`
}

// Record is a Summary together with the full result and the captured logs
// of every step.
type Record struct {
	Summary
	Result *activation.Result             `json:"result,omitempty"`
	Logs   map[string][]logging.LogEntry `json:"logs,omitempty"`
}

// Store keeps the most recent activations, most recent first.
type Store interface {
	// List returns the summaries of all kept activations.
	List() []Summary
	// Get returns one activation or ErrNotFound.
	Get(id string) (Record, error)
	// Save records a finished activation.
	Save(Record) error
}
