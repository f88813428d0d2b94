package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/journeyid/registry"
)

// mockS3Client records PutObject calls.
type mockS3Client struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func testManifest() Manifest {
	return Manifest{
		Kind:         KindActivation,
		ActivationID: "act-1",
		CampaignID:   "CMP-EYLEA-2026-001",
		CampaignName: "Eylea HCP Q4 Launch",
		Brand:        "Eylea",
		GeneratedAt:  time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Entries: []registry.Entry{
			{ID: "e1", Type: registry.TypeCampaign, CompositeKey: "CMP-EYLEA-2026-001", CampaignID: "CMP-EYLEA-2026-001", Status: registry.StatusMinted},
		},
		TrackingURLs: map[string]string{"2:MSEG-1": "https://example.com/?utm_source=eylea"},
	}
}

func TestManifest_ObjectKey(t *testing.T) {
	m := testManifest()
	assert.Equal(t, "activations/CMP-EYLEA-2026-001/20261017T093000Z-act-1.json", m.ObjectKey())

	m.ActivationID = ""
	assert.Equal(t, "activations/CMP-EYLEA-2026-001/20261017T093000Z.json", m.ObjectKey())

	snap := Manifest{Kind: KindSnapshot, GeneratedAt: m.GeneratedAt}
	assert.Equal(t, "snapshots/20261017T093000Z.json", snap.ObjectKey())
}

func TestManifest_EncodeUsesRegistryKey(t *testing.T) {
	data, err := testManifest().Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "idRegistryEntries")
	assert.Equal(t, "CMP-EYLEA-2026-001", decoded["campaignId"])
}

func TestS3Exporter(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		putErr      error
		wantURI     string
		errContains string
	}{
		{
			name:    "uploads with prefix",
			prefix:  "journeyid/prod",
			wantURI: "s3://manifests/journeyid/prod/activations/CMP-EYLEA-2026-001/20261017T093000Z-act-1.json",
		},
		{
			name:    "uploads without prefix",
			wantURI: "s3://manifests/activations/CMP-EYLEA-2026-001/20261017T093000Z-act-1.json",
		},
		{
			name:        "upload failure",
			putErr:      errors.New("upload failed: access denied"),
			errContains: "access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			client := &mockS3Client{
				PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
					calls++
					assert.Equal(t, "manifests", aws.ToString(params.Bucket))
					assert.Equal(t, "application/json", aws.ToString(params.ContentType))
					assert.Equal(t, "activation", params.Metadata["kind"])
					assert.Equal(t, "CMP-EYLEA-2026-001", params.Metadata["campaign-id"])

					body, err := io.ReadAll(params.Body)
					require.NoError(t, err)
					assert.Contains(t, string(body), "idRegistryEntries")

					if tt.putErr != nil {
						return nil, tt.putErr
					}
					return &s3.PutObjectOutput{ETag: aws.String("mock-etag")}, nil
				},
			}

			exporter := NewS3ExporterWithClient(client, "manifests", tt.prefix)
			uri, err := exporter.ExportManifest(context.Background(), testManifest())

			assert.Equal(t, 1, calls)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				assert.Empty(t, uri)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURI, uri)
		})
	}
}

func TestNewS3Exporter_RequiresBucket(t *testing.T) {
	_, err := NewS3Exporter(context.Background(), S3Config{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")
}

func TestDiskExporter(t *testing.T) {
	dir := t.TempDir()
	exporter := NewDiskExporter(dir)

	uri, err := exporter.ExportManifest(context.Background(), testManifest())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	path := filepath.Join(dir, "activations", "CMP-EYLEA-2026-001", "20261017T093000Z-act-1.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "CMP-EYLEA-2026-001", got.CampaignID)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, registry.StatusMinted, got.Entries[0].Status)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDiskExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiskExporter(t.TempDir()).ExportManifest(ctx, testManifest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExporterFunc(t *testing.T) {
	var got Manifest
	f := ExporterFunc(func(_ context.Context, m Manifest) (string, error) {
		got = m
		return "mem://" + m.CampaignID, nil
	})

	uri, err := f.ExportManifest(context.Background(), testManifest())
	require.NoError(t, err)
	assert.Equal(t, "mem://CMP-EYLEA-2026-001", uri)
	assert.Equal(t, "act-1", got.ActivationID)
}
