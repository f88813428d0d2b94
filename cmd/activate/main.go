// Command activate runs one activation from a journey file and prints the
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/buildinfo"
	"github.com/nomis52/journeyid/config"
	"github.com/nomis52/journeyid/logging"
	"github.com/nomis52/journeyid/metrics"
	"github.com/nomis52/journeyid/workflows"
)

type Args struct {
	ConfigPath  string
	JourneyPath string
	ShowVersion bool
	Validate    bool
	Force       bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	if args.ShowVersion {
		fmt.Printf("activate %s\n", buildinfo.Get())
		return nil
	}

	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}
	if args.JourneyPath == "" {
		return fmt.Errorf("journey flag (-j or --journey) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req, err := loadRequest(args.JourneyPath)
	if err != nil {
		return err
	}
	if args.Force {
		req.ForceActivate = true
	}

	if args.Validate {
		if err := req.Validate(); err != nil {
			return err
		}
		fmt.Printf("Journey validation successful: %s\n", args.JourneyPath)
		return nil
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	props := buildinfo.Get()
	logger.Info("activate started",
		"version", props.Version,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
		"journey_path", args.JourneyPath,
	)

	var registry metrics.Registry = metrics.NoopRegistry{}
	var push *metrics.PushRegistry
	if cfg.Monitoring.VictoriaMetricsURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		registry = push
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := workflows.NewPipeline(ctx, workflows.Params{
		Config:   &cfg,
		Logger:   logger.Logger,
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("failed to build activation pipeline: %w", err)
	}
	defer pipeline.Close()

	res, actErr := activation.MintIDsAndActivate(ctx, pipeline.Orchestrator, req)
	if push != nil {
		if err := push.Flush(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to push metrics", "url", cfg.Monitoring.VictoriaMetricsURL, "error", err)
		}
	}
	if res != nil {
		if err := printResult(os.Stdout, res); err != nil {
			return errors.Join(actErr, err)
		}
	}
	return actErr
}

// loadRequest reads a YAML journey file with snake_case keys.
func loadRequest(path string) (activation.Request, error) {
	var req activation.Request
	f, err := os.Open(path)
	if err != nil {
		return req, fmt.Errorf("failed to open journey file %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to decode journey file %s: %w", path, err)
	}
	return req, nil
}

func printResult(w io.Writer, res *activation.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	journeyPath := flag.String("journey", "", "Path to journey file (YAML)")
	journeyPathShort := flag.String("j", "", "Path to journey file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate the journey and exit without minting")
	force := flag.Bool("force", false, "Activate even if taxonomy validation fails")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMint tracking ids for a journey and activate it\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/journeyid/config.yaml --journey journey.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml -j journey.yaml --validate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}
	journey := *journeyPath
	if journey == "" && *journeyPathShort != "" {
		journey = *journeyPathShort
	}

	return Args{
		ConfigPath:  path,
		JourneyPath: journey,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
		Force:       *force,
	}
}
