// Package workflows builds the activation pipeline from the application
// configuration. The server and the CLI both construct their orchestrator
// here so that a config file means the same thing to either.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/config"
	"github.com/nomis52/journeyid/export"
	"github.com/nomis52/journeyid/metrics"
	"github.com/nomis52/journeyid/mint"
	"github.com/nomis52/journeyid/registry"
	"github.com/nomis52/journeyid/taxonomy"
)

// Params contains the inputs of pipeline construction.
type Params struct {
	// Config is the application configuration.
	Config *config.Config

	// Logger is the base logger for the pipeline.
	Logger *slog.Logger

	// Registry receives the activation metrics. May be nil if metrics are not needed.
	Registry metrics.Registry

	// Metrics takes precedence over Registry. Long lived processes that
	// rebuild the pipeline pass the metrics they registered once.
	Metrics *metrics.ActivationMetrics
}

// Pipeline is an activation orchestrator together with the collaborators it
// was built from.
type Pipeline struct {
	Orchestrator *activation.Orchestrator
	// Store is nil when activations do not share a registry namespace.
	Store    registry.Store
	Exporter export.Exporter
	Counter  mint.Counter

	closers []func() error
}

// NewPipeline builds a pipeline from p.Config. The caller must Close it.
func NewPipeline(ctx context.Context, p Params) (*Pipeline, error) {
	if p.Config == nil {
		return nil, errors.New("pipeline requires a config")
	}
	cfg := p.Config
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pl := &Pipeline{}
	ok := false
	defer func() {
		if !ok {
			pl.Close()
		}
	}()

	counter, err := pl.newCounter(ctx, cfg.Minting)
	if err != nil {
		return nil, err
	}
	pl.Counter = counter

	store, err := pl.newStore(ctx, cfg.Registry)
	if err != nil {
		return nil, err
	}
	pl.Store = store

	exporter, err := newExporter(ctx, cfg.Export)
	if err != nil {
		return nil, err
	}
	pl.Exporter = exporter

	validator, err := taxonomy.NewPolicyValidator(cfg.Validation.RequiredFields)
	if err != nil {
		return nil, fmt.Errorf("creating taxonomy validator: %w", err)
	}

	opts := []activation.Option{
		activation.WithCounter(counter),
		activation.WithActor(cfg.Minting.Actor),
		activation.WithConcurrency(cfg.Minting.Concurrency),
		activation.WithMaxAttempts(cfg.Minting.MaxAttempts),
		activation.WithValidationTimeout(cfg.Validation.Timeout),
		activation.WithExportTimeout(cfg.Export.Timeout),
		activation.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, activation.WithStore(store))
	}
	switch {
	case p.Metrics != nil:
		opts = append(opts, activation.WithMetrics(p.Metrics))
	case p.Registry != nil:
		m, err := metrics.NewActivationMetrics(p.Registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, activation.WithMetrics(m))
	}

	o, err := activation.NewOrchestrator(validator, exporter, opts...)
	if err != nil {
		return nil, err
	}
	pl.Orchestrator = o

	logger.Info("activation pipeline ready",
		"counter", cfg.Minting.Counter,
		"registry_store", cfg.Registry.Store,
		"export_backend", cfg.Export.Backend,
		"required_fields", validator.RequiredFields())

	ok = true
	return pl, nil
}

// Close releases connections opened for the pipeline.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// newCounter returns one counter for every activation of the pipeline, so
// campaign ids are handed out in order within a process even without Redis.
func (p *Pipeline) newCounter(ctx context.Context, cfg config.MintingConfig) (mint.Counter, error) {
	switch cfg.Counter {
	case config.CounterRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		p.closers = append(p.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return mint.NewRedisCounter(client), nil
	case config.CounterMemory, "":
		return mint.NewMemoryCounter(), nil
	default:
		return nil, fmt.Errorf("unknown counter %q", cfg.Counter)
	}
}

func (p *Pipeline) newStore(ctx context.Context, cfg config.RegistryConfig) (registry.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := registry.OpenPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, store.Close)
		return store, nil
	case config.StoreMemory:
		return registry.NewMemoryStore(), nil
	case config.StoreNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown registry store %q", cfg.Store)
	}
}

func newExporter(ctx context.Context, cfg config.ExportConfig) (export.Exporter, error) {
	switch cfg.Backend {
	case config.ExportS3:
		return export.NewS3Exporter(ctx, export.S3Config{
			Bucket:  cfg.S3Bucket,
			Prefix:  cfg.S3Prefix,
			Region:  cfg.S3Region,
			Profile: cfg.AWSProfile,
		})
	case config.ExportDisk, "":
		return export.NewDiskExporter(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.Backend)
	}
}
