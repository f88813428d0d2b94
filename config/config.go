package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CounterMemory = "memory"
	CounterRedis  = "redis"

	StoreNone     = "none"
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ExportDisk = "disk"
	ExportS3   = "s3"

	redacted = "REDACTED"
)

const (
	// Default minting settings
	defaultActor       = "system"
	defaultConcurrency = 8
	defaultMaxAttempts = 50

	// Default timeouts
	defaultValidationTimeout = 10 * time.Second
	defaultExportTimeout     = 30 * time.Second

	defaultExportDir = "manifests"

	// Default monitoring settings
	defaultMetricsPrefix = "journeyid"
	defaultJobName       = "journeyid"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// Config represents the configuration of the activation pipeline.
type Config struct {
	Minting    MintingConfig    `yaml:"minting"`
	Registry   RegistryConfig   `yaml:"registry"`
	Validation ValidationConfig `yaml:"validation"`
	Export     ExportConfig     `yaml:"export"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MintingConfig controls how campaign ids and entries are minted.
type MintingConfig struct {
	// Actor is recorded as mintedBy on every entry
	Actor string `yaml:"actor"`
	// Counter selects the campaign counter: memory or redis
	Counter       string `yaml:"counter"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// Concurrency bounds how many nodes are minted in parallel
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts bounds the search for a free campaign id
	MaxAttempts int `yaml:"max_attempts"`
}

// RegistryConfig selects where minted entries are kept between activations.
type RegistryConfig struct {
	// Store is none, memory or postgres. With none every activation has a
	// private namespace.
	Store       string `yaml:"store"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ValidationConfig configures taxonomy validation.
type ValidationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// RequiredFields lists the entry fields that must be non-empty. Empty
	// selects the default policy.
	RequiredFields []string `yaml:"required_fields"`
}

// ExportConfig configures where manifests are written.
type ExportConfig struct {
	// Backend is disk or s3
	Backend    string        `yaml:"backend"`
	Dir        string        `yaml:"dir"`
	S3Bucket   string        `yaml:"s3_bucket"`
	S3Prefix   string        `yaml:"s3_prefix"`
	S3Region   string        `yaml:"s3_region"`
	AWSProfile string        `yaml:"aws_profile"`
	Timeout    time.Duration `yaml:"timeout"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	switch c.Minting.Counter {
	case CounterMemory:
	case CounterRedis:
		if c.Minting.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis counter")
		}
	default:
		return fmt.Errorf("unknown counter %q, expected %s or %s", c.Minting.Counter, CounterMemory, CounterRedis)
	}
	if c.Minting.Concurrency <= 0 {
		return fmt.Errorf("minting concurrency must be positive")
	}
	if c.Minting.MaxAttempts <= 0 {
		return fmt.Errorf("minting max_attempts must be positive")
	}

	switch c.Registry.Store {
	case StoreNone, StoreMemory:
	case StorePostgres:
		if c.Registry.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown registry store %q", c.Registry.Store)
	}

	if c.Validation.Timeout <= 0 {
		return fmt.Errorf("validation timeout must be positive")
	}

	switch c.Export.Backend {
	case ExportDisk:
		if c.Export.Dir == "" {
			return fmt.Errorf("export dir is required for the disk backend")
		}
	case ExportS3:
		if c.Export.S3Bucket == "" {
			return fmt.Errorf("s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown export backend %q", c.Export.Backend)
	}
	if c.Export.Timeout <= 0 {
		return fmt.Errorf("export timeout must be positive")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Minting.Actor == "" {
		c.Minting.Actor = defaultActor
	}
	if c.Minting.Counter == "" {
		c.Minting.Counter = CounterMemory
	}
	if c.Minting.Concurrency == 0 {
		c.Minting.Concurrency = defaultConcurrency
	}
	if c.Minting.MaxAttempts == 0 {
		c.Minting.MaxAttempts = defaultMaxAttempts
	}
	if c.Registry.Store == "" {
		c.Registry.Store = StoreNone
	}
	if c.Validation.Timeout == 0 {
		c.Validation.Timeout = defaultValidationTimeout
	}
	if c.Export.Backend == "" {
		c.Export.Backend = ExportDisk
	}
	if c.Export.Backend == ExportDisk && c.Export.Dir == "" {
		c.Export.Dir = defaultExportDir
	}
	if c.Export.Timeout == 0 {
		c.Export.Timeout = defaultExportTimeout
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Redacted returns a copy of the config with credentials replaced.
func (c *Config) Redacted() Config {
	cp := *c
	cp.Validation.RequiredFields = append([]string(nil), c.Validation.RequiredFields...)
	if cp.Minting.RedisPassword != "" {
		cp.Minting.RedisPassword = redacted
	}
	if cp.Registry.PostgresDSN != "" {
		cp.Registry.PostgresDSN = redacted
	}
	return cp
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	// An empty file selects every default.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
