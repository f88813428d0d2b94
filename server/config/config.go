package config

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/journeyid/logging"
)

const (
	defaultListenAddr      = ":8080"
	defaultHistoryMaxCount = 100
)

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener ListenerConfig `yaml:"listener"`
	History  HistoryConfig  `yaml:"history"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	LogLevel string         `yaml:"log_level"`
	// MaxConcurrentActivations rejects activations beyond this many in flight.
	// Zero means unlimited.
	MaxConcurrentActivations int `yaml:"max_concurrent_activations"`
	// The path to the activation pipeline config file
	ActivationConfig string `yaml:"activation_config"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// TLSCert and TLSKey enable HTTPS. Renewed files are picked up without a restart.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// TLSEnabled reports whether the listener serves HTTPS.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCert != ""
}

// HistoryConfig controls where finished activations are recorded.
type HistoryConfig struct {
	// Dir stores one JSON file per activation. Empty keeps history in memory.
	Dir      string `yaml:"dir"`
	MaxCount int    `yaml:"max_count"`
}

// SnapshotConfig schedules exports of every stored registry entry.
type SnapshotConfig struct {
	// Schedule is a 5 field cron spec. Empty disables snapshots.
	Schedule string `yaml:"schedule"`
}

// LoadConfig reads the YAML config file at the given path and returns a ServerConfig struct.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.History.MaxCount == 0 {
		c.History.MaxCount = defaultHistoryMaxCount
	}
}

// Validate checks the fields that have no usable default.
func (c *ServerConfig) Validate() error {
	if c.ActivationConfig == "" {
		return fmt.Errorf("activation_config is required")
	}
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		return fmt.Errorf("listener tls_cert and tls_key must be set together")
	}
	if c.History.MaxCount < 0 {
		return fmt.Errorf("history max_count must not be negative")
	}
	if c.MaxConcurrentActivations < 0 {
		return fmt.Errorf("max_concurrent_activations must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
	}
	if c.Snapshot.Schedule != "" {
		if _, err := cron.ParseStandard(c.Snapshot.Schedule); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", c.Snapshot.Schedule, err)
		}
	}
	return nil
}
