package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the subset of the S3 client used by S3Exporter.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket manifests are written to.
type S3Config struct {
	Bucket  string
	Prefix  string
	Region  string
	Profile string
}

// S3Exporter uploads manifests to S3.
type S3Exporter struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Exporter loads the default AWS configuration, optionally narrowed to
// a region and shared config profile, and creates an exporter.
func NewS3Exporter(ctx context.Context, cfg S3Config) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for manifest export: %w", err)
	}
	return NewS3ExporterWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewS3ExporterWithClient creates an exporter using an existing client.
func NewS3ExporterWithClient(client PutObjectAPI, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: prefix}
}

// ExportManifest implements Exporter and returns an s3:// URI.
func (e *S3Exporter) ExportManifest(ctx context.Context, m Manifest) (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}

	key := path.Join(e.prefix, m.ObjectKey())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"kind": string(m.Kind),
		},
	}
	if m.CampaignID != "" {
		input.Metadata["campaign-id"] = m.CampaignID
	}

	if _, err := e.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", e.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", e.bucket, key), nil
}
