package activation

import (
	"time"

	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/taxonomy"
)

// StepStatus is the outcome of one activation step.
type StepStatus struct {
	Step      string    `json:"step"`
	State     string    `json:"state"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"startTime,omitzero"`
	EndTime   time.Time `json:"endTime,omitzero"`
}

// Result describes an activation. On failure it holds whatever state was
// reached, so Entries may be partial and stay MINTED.
type Result struct {
	ActivationID      string            `json:"activationId"`
	CampaignID        string            `json:"campaignId,omitempty"`
	ActivatedAt       *time.Time        `json:"activatedAt,omitempty"`
	Entries           []registry.Entry  `json:"idRegistryEntries"`
	Validated         bool              `json:"claravineValidated"`
	S3ExportPath      string            `json:"s3ExportPath,omitempty"`
	SequenceCount     int               `json:"sequenceCount"`
	MicrosegmentCount int               `json:"microsegmentCount"`
	TrackingURLs      map[string]string `json:"trackingURLs"`
	Phase             Phase             `json:"phase"`
	EditingNodeID     *string           `json:"editingNodeId,omitempty"`
	ValidationIssues  []taxonomy.Issue  `json:"validationIssues,omitempty"`
	UnreachableNodes  []string          `json:"unreachableNodes,omitempty"`
	ForceActivated    bool              `json:"forceActivated,omitempty"`
	Steps             []StepStatus      `json:"steps,omitempty"`
}

// Activated reports whether the entries were moved to ACTIVE.
func (r *Result) Activated() bool {
	return r != nil && r.ActivatedAt != nil
}
