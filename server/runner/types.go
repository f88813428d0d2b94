package runner

import (
	"time"

	"github.com/nomis52/journeyid/logging"
)

// InFlight describes an activation that has not finished yet.
type InFlight struct {
	ID           string    `json:"id"`
	CampaignName string    `json:"campaign_name"`
	Brand        string    `json:"brand"`
	StartedAt    time.Time `json:"started_at"`
	// Statuses holds the latest status line of each step, keyed by step name.
	Statuses map[string]string `json:"statuses,omitempty"`
	// Logs holds the records captured so far, keyed by step name.
	Logs map[string][]logging.LogEntry `json:"logs,omitempty"`
}
