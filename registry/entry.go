// Package registry holds minted identity entries and enforces the uniqueness
// of campaign ids and composite keys.
//
// A Registry is the per-activation collection of entries. It can be backed by
// a Store shared between activations, in which case campaign ids reserved by
// one activation are refused to every other.
package registry

import (
	"time"

	"github.com/nomis52/journeyid/params"
)

// EntryType discriminates the level of an entry in the identity hierarchy.
type EntryType string

const (
	TypeCampaign EntryType = "CAMPAIGN"
	TypeSequence EntryType = "SEQUENCE"
	TypeContent  EntryType = "CONTENT"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusMinted Status = "MINTED"
	StatusActive Status = "ACTIVE"
)

// Entry is one minted identity.
//
// SequenceNumber is set for SEQUENCE and CONTENT entries. ContentID and
// MicrosegmentID are set for CONTENT entries only. NodeID records the journey
// node an entry was minted from and is empty for the CAMPAIGN entry.
type Entry struct {
	ID             string     `json:"id"`
	Type           EntryType  `json:"type"`
	CompositeKey   string     `json:"compositeKey"`
	CampaignID     string     `json:"campaignId"`
	Status         Status     `json:"status"`
	UTM            params.UTM `json:"utmParameters"`
	CM             params.CM  `json:"cmParameters"`
	SequenceNumber *int       `json:"sequenceNumber,omitempty"`
	NodeID         string     `json:"nodeId,omitempty"`
	ContentID      string     `json:"contentId,omitempty"`
	MicrosegmentID string     `json:"microsegmentId,omitempty"`
	MintedAt       time.Time  `json:"mintedAt"`
	MintedBy       string     `json:"mintedBy"`
	ActivatedAt    *time.Time `json:"activatedAt,omitempty"`
}

// slot identifies the namespace position an entry occupies. CAMPAIGN entries
// are unique by key. Several nodes can share a depth and therefore a
// SEQUENCE key, so sequence slots include the node. CONTENT keys are shared
// by every microsegment of a node, so content slots include the microsegment.
type slot struct {
	key     string
	nodeID  string
	segment string
}

func slotOf(e Entry) slot {
	switch e.Type {
	case TypeSequence:
		return slot{key: e.CompositeKey, nodeID: e.NodeID}
	case TypeContent:
		return slot{key: e.CompositeKey, segment: e.MicrosegmentID}
	default:
		return slot{key: e.CompositeKey}
	}
}
