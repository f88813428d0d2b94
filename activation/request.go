package activation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nomis52/journeyid/journey"
	"github.com/nomis52/journeyid/mint"
)

// Audience is the audience type a campaign targets.
type Audience string

const (
	AudienceHCP     Audience = "HCP"
	AudiencePatient Audience = "PATIENT"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	return a == AudienceHCP || a == AudiencePatient
}

// Request describes a journey to activate.
type Request struct {
	CampaignName    string                 `json:"campaignName" yaml:"campaign_name"`
	Nodes           []journey.Node         `json:"nodes" yaml:"nodes"`
	Edges           []journey.Edge         `json:"edges" yaml:"edges"`
	Microsegments   []journey.Microsegment `json:"microsegments" yaml:"microsegments"`
	Brand           string                 `json:"brand" yaml:"brand"`
	Audience        Audience               `json:"audienceType" yaml:"audience_type"`
	Segment         string                 `json:"segment" yaml:"segment"`
	TherapeuticArea string                 `json:"therapeuticArea" yaml:"therapeutic_area"`
	Indication      string                 `json:"indication,omitempty" yaml:"indication,omitempty"`

	// ForceActivate activates entries even if taxonomy validation fails.
	ForceActivate bool `json:"forceActivate,omitempty" yaml:"force_activate,omitempty"`
	// EditingNodeID is the node open in the journey editor when activation
	// was requested. It is returned unchanged in the result.
	EditingNodeID *string `json:"editingNodeId,omitempty" yaml:"editing_node_id,omitempty"`
}

// Validate checks the request fields and the journey graph. It returns a
// *RequestError or a *journey.StructuralError.
func (r Request) Validate() error {
	if strings.TrimSpace(r.CampaignName) == "" {
		return &RequestError{Field: "campaignName", Reason: "is required"}
	}
	if mint.BrandCode(r.Brand) == "" {
		return &RequestError{Field: "brand", Reason: "must contain at least one letter or digit"}
	}
	if !r.Audience.Valid() {
		return &RequestError{Field: "audienceType", Reason: fmt.Sprintf("must be %s or %s, got %q", AudienceHCP, AudiencePatient, r.Audience)}
	}
	if strings.TrimSpace(r.Segment) == "" {
		return &RequestError{Field: "segment", Reason: "is required"}
	}
	if strings.TrimSpace(r.TherapeuticArea) == "" {
		return &RequestError{Field: "therapeuticArea", Reason: "is required"}
	}

	seen := make(map[string]bool, len(r.Microsegments))
	for _, ms := range r.Microsegments {
		if ms.ID == "" {
			return &RequestError{Field: "microsegments", Reason: "contain an empty id"}
		}
		if seen[ms.ID] {
			return &RequestError{Field: "microsegments", Reason: fmt.Sprintf("contain duplicate id %q", ms.ID)}
		}
		seen[ms.ID] = true
	}

	if err := journey.Validate(r.Nodes, r.Edges); err != nil {
		return err
	}

	for _, n := range r.Nodes {
		if !n.HasContent() || n.Content.BaseURL == "" {
			continue
		}
		u, err := url.Parse(n.Content.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &journey.StructuralError{Reason: fmt.Sprintf("content base url %q is not an absolute url", n.Content.BaseURL), NodeID: n.ID}
		}
	}
	return nil
}

func (r Request) campaignInfo() mint.CampaignInfo {
	return mint.CampaignInfo{
		Name:            r.CampaignName,
		Brand:           r.Brand,
		Audience:        string(r.Audience),
		Segment:         r.Segment,
		TherapeuticArea: r.TherapeuticArea,
		Indication:      r.Indication,
	}
}
