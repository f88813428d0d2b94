// Package server provides the HTTP server of the journeyid activation
// service.
//
// # Endpoints
//
//   - POST /api/activations - Activates a journey
//   - GET /api/activations - Finished activations, most recent first
//   - GET /api/activations/{id} - One finished activation with step logs
//   - POST /api/keys/validate - Parses a composite key
//   - POST /api/tokens/sanitize - Previews parameter tokens
//   - GET /api/status - Build info, running activations and scheduled jobs
//   - GET /health - "ok" once a pipeline is loaded, 503 before
//   - GET /metrics - Prometheus metrics
//   - GET /config - The activation config as YAML, secrets redacted
//   - POST /reload - Rebuilds the activation pipeline from disk
//
// # Architecture
//
// The activation pipeline (counter, registry store, exporter, validator) is
// built from the activation config and swapped atomically on reload.
// Activations that are running when a reload happens finish on the pipeline
// they started with; the old pipeline is closed once the last of them is done.
//
// # Example
//
//	srv, err := server.New(srvCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/buildinfo"
	"github.com/nomis52/journeyid/config"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/metrics"
	serverconfig "github.com/nomis52/journeyid/server/config"
	"github.com/nomis52/journeyid/server/cron"
	"github.com/nomis52/journeyid/server/handlers"
	"github.com/nomis52/journeyid/server/history"
	"github.com/nomis52/journeyid/server/runner"
	"github.com/nomis52/journeyid/server/types"
	"github.com/nomis52/journeyid/workflows"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

var errNoRegistryStore = errors.New("snapshots require a registry store")

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config   *config.Config
	pipeline *workflows.Pipeline
	logger   *slog.Logger

	mu      sync.Mutex
	inUse   int
	retired bool
	closed  bool
}

// acquire marks the pipeline as in use. It fails once the pipeline is closed.
func (d *serverDeps) acquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.inUse++
	return true
}

func (d *serverDeps) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inUse--
	if d.retired && d.inUse == 0 {
		d.closeLocked()
	}
}

// retire closes the pipeline once nothing uses it.
func (d *serverDeps) retire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retired = true
	if d.inUse == 0 {
		d.closeLocked()
	}
}

func (d *serverDeps) closeLocked() {
	if d.closed {
		return
	}
	d.closed = true
	if err := d.pipeline.Close(); err != nil {
		d.logger.Warn("failed to close retired pipeline", "error", err)
	}
}

// Server is the HTTP server of the activation service.
type Server struct {
	cfg         *serverconfig.ServerConfig
	logger      *slog.Logger
	baseLogger  *logging.Logger
	metrics     *metrics.ScrapeRegistry
	actMetrics  *metrics.ActivationMetrics
	props       types.ServerProperties
	reloadMu    sync.Mutex
	deps        atomic.Pointer[serverDeps]
	httpServer  *http.Server
	runner      *runner.Runner
	cron        *cron.CronTriggerManager
	snapshotter *cron.Snapshotter
	certs       *certLoader
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger replaces the server's JSON logger on stderr. SetLogLevel has no
// effect on a replaced logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// New creates a new Server from the server config. It loads the activation
// config, builds the pipeline and opens the history store.
func New(cfg *serverconfig.ServerConfig, opts ...Option) (*Server, error) {
	base, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		baseLogger: base,
		logger:     base.Logger,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	hostname, _ := os.Hostname()
	s.props = types.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: time.Now(),
		Hostname:  hostname,
	}

	reg, err := metrics.NewScrapeRegistry()
	if err != nil {
		return nil, err
	}
	s.metrics = reg
	if s.actMetrics, err = metrics.NewActivationMetrics(reg); err != nil {
		return nil, err
	}

	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			s.deps.Load().retire()
		}
	}()

	store, err := s.newHistoryStore()
	if err != nil {
		return nil, err
	}
	s.runner = runner.New(s.logger, s,
		runner.WithHistoryStore(store),
		runner.WithMaxConcurrent(cfg.MaxConcurrentActivations))

	s.cron = cron.NewCronTriggerManager(s.logger)
	s.snapshotter = cron.NewSnapshotter(s.logger)
	if cfg.Snapshot.Schedule != "" {
		if s.deps.Load().pipeline.Store == nil {
			return nil, fmt.Errorf("snapshot schedule %q: %w", cfg.Snapshot.Schedule, errNoRegistryStore)
		}
		if err := s.cron.Add(cron.SnapshotJobName, cfg.Snapshot.Schedule, cron.JobFunc(s.snapshot)); err != nil {
			return nil, err
		}
	}

	if cfg.Listener.TLSEnabled() {
		if s.certs, err = newCertLoader(cfg.Listener.TLSCert, cfg.Listener.TLSKey, s.logger); err != nil {
			return nil, err
		}
	}
	ok = true
	return s, nil
}

func (s *Server) newHistoryStore() (history.Store, error) {
	if s.cfg.History.Dir == "" {
		return history.NewMemoryStore(s.cfg.History.MaxCount), nil
	}
	return history.NewDiskStore(s.cfg.History.Dir, s.cfg.History.MaxCount, s.logger)
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// SetLogLevel changes the server's log level at runtime.
func (s *Server) SetLogLevel(level slog.Level) {
	s.baseLogger.SetLevel(level)
}

// Reload reads the activation config from disk and rebuilds the pipeline.
// The previous pipeline is closed once its running activations finish.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := config.LoadConfig(s.cfg.ActivationConfig)
	if err != nil {
		return err
	}

	pipeline, err := workflows.NewPipeline(ctx, workflows.Params{
		Config:  &cfg,
		Logger:  s.logger,
		Metrics: s.actMetrics,
	})
	if err != nil {
		return err
	}

	old := s.deps.Swap(&serverDeps{
		config:   &cfg,
		pipeline: pipeline,
		logger:   s.logger,
	})
	if old != nil {
		old.retire()
	}

	s.logger.Info("activation config loaded", "config_path", s.cfg.ActivationConfig)
	return nil
}

// Config returns the current activation config.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// withPipeline runs fn with the current pipeline, keeping it open until fn returns.
func (s *Server) withPipeline(fn func(*workflows.Pipeline) error) error {
	for {
		d := s.deps.Load()
		if !d.acquire() {
			// Retired between Load and acquire; the replacement is already stored.
			continue
		}
		defer d.release()
		return fn(d.pipeline)
	}
}

// Activator implements runner.ActivatorProvider.
func (s *Server) Activator() runner.Activator {
	return pipelineActivator{s}
}

type pipelineActivator struct {
	s *Server
}

func (a pipelineActivator) Activate(ctx context.Context, req activation.Request, opts ...activation.RunOption) (*activation.Result, error) {
	var res *activation.Result
	err := a.s.withPipeline(func(p *workflows.Pipeline) error {
		var err error
		res, err = p.Orchestrator.Activate(ctx, req, opts...)
		return err
	})
	return res, err
}

func (s *Server) snapshot(ctx context.Context) error {
	return s.withPipeline(func(p *workflows.Pipeline) error {
		if p.Store == nil {
			return errNoRegistryStore
		}
		return s.snapshotter.Snapshot(ctx, p.Store, p.Exporter)
	})
}

// Properties returns metadata about this server instance.
func (s *Server) Properties() types.ServerProperties {
	return s.props
}

// Running returns the in-flight activations.
func (s *Server) Running() []runner.InFlight {
	return s.runner.Running()
}

// Jobs returns the scheduled jobs.
func (s *Server) Jobs() []cron.ScheduledJob {
	return s.cron.Jobs()
}

// LastSnapshot returns the latest registry snapshot, if any.
func (s *Server) LastSnapshot() *cron.SnapshotRun {
	return s.snapshotter.LastRun()
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done and closes the
// pipeline afterwards. Scheduled jobs are started automatically.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listener.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	if s.certs != nil {
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: s.certs.GetCertificate,
		}
	}

	s.cron.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.cfg.Listener.Addr,
			"tls", s.certs != nil,
			"activation_config", s.cfg.ActivationConfig,
			"version", s.props.Build.Version,
		)
		var err error
		if s.certs != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	defer func() { s.deps.Load().retire() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/activations", handlers.NewActivateHandler(s.logger, s.runner))
	mux.Handle("GET /api/activations", handlers.NewActivationListHandler(s.runner))
	mux.Handle("GET /api/activations/{id}", handlers.NewActivationGetHandler(s.runner))
	mux.Handle("POST /api/keys/validate", handlers.NewKeyValidateHandler())
	mux.Handle("POST /api/tokens/sanitize", handlers.NewSanitizeHandler())
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))

	mux.Handle("GET /health", handlers.NewHealthHandler(s))
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))
}
