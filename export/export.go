// Package export writes activation manifests to durable storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/nomis52/journeyid/registry"
)

// Kind distinguishes manifests written for one activation from periodic
// snapshots of the whole registry.
type Kind string

const (
	KindActivation Kind = "activation"
	KindSnapshot   Kind = "snapshot"
)

// Manifest is the machine readable record of minted entries.
type Manifest struct {
	Kind              Kind              `json:"kind"`
	ActivationID      string            `json:"activationId,omitempty"`
	CampaignID        string            `json:"campaignId,omitempty"`
	CampaignName      string            `json:"campaignName,omitempty"`
	Brand             string            `json:"brand,omitempty"`
	GeneratedAt       time.Time         `json:"generatedAt"`
	Validated         bool              `json:"validated"`
	SequenceCount     int               `json:"sequenceCount"`
	MicrosegmentCount int               `json:"microsegmentCount"`
	Entries           []registry.Entry  `json:"idRegistryEntries"`
	TrackingURLs      map[string]string `json:"trackingUrls,omitempty"`
}

// ObjectKey returns the relative name a manifest is stored under.
func (m Manifest) ObjectKey() string {
	ts := m.GeneratedAt.UTC().Format("20060102T150405Z")
	if m.Kind == KindSnapshot {
		return path.Join("snapshots", ts+".json")
	}
	name := ts + ".json"
	if m.ActivationID != "" {
		name = ts + "-" + m.ActivationID + ".json"
	}
	return path.Join("activations", m.CampaignID, name)
}

// Encode serializes the manifest.
func (m Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// Exporter stores a manifest and returns the URI it was written to.
type Exporter interface {
	ExportManifest(ctx context.Context, m Manifest) (string, error)
}

// ExporterFunc adapts a function to an Exporter.
type ExporterFunc func(ctx context.Context, m Manifest) (string, error)

// ExportManifest implements Exporter.
func (f ExporterFunc) ExportManifest(ctx context.Context, m Manifest) (string, error) {
	return f(ctx, m)
}
