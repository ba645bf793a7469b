package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/paths"
)

// Config represents the enaimport configuration
type Config struct {
	Source     SourceConfig     `yaml:"source"`     // ERAPRO connection
	BioSamples BioSamplesConfig `yaml:"biosamples"` // Downstream service
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	RunStore   RunStoreConfig   `yaml:"runstore"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Seen       SeenConfig       `yaml:"seen"` // Sweep dedupe across runs
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SourceConfig contains ERAPRO settings
type SourceConfig struct {
	Driver           string `yaml:"driver"` // pgx or sqlite3
	DSN              string `yaml:"dsn"`
	AccessionPattern string `yaml:"accession_pattern"`
	SweepPattern     string `yaml:"sweep_pattern"`
	QueryAttempts    int    `yaml:"query_attempts"`
}

// BioSamplesConfig contains BioSamples client and ownership settings
type BioSamplesConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Token              string        `yaml:"token"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimit          float64       `yaml:"rate_limit"` // requests per second, 0 disables
	Burst              int           `yaml:"burst"`
	ENADomain          string        `yaml:"ena_domain"`
	WebinSuperuser     string        `yaml:"webin_superuser"`
	ApplyFixedTaxonomy bool          `yaml:"apply_fixed_taxonomy"`
}

// PipelineConfig contains worker pool and retry settings
type PipelineConfig struct {
	Name          string        `yaml:"name"`
	Threads       int           `yaml:"threads"`
	MinThreads    int           `yaml:"min_threads"`
	MaxThreads    int           `yaml:"max_threads"`
	MaxInFlight   int           `yaml:"max_in_flight"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
}

// RunStoreConfig locates the pipeline run database
type RunStoreConfig struct {
	Path string `yaml:"path"`
}

// ArtifactsConfig selects where accession lists are written
type ArtifactsConfig struct {
	Driver    string `yaml:"driver"` // file or s3
	Directory string `yaml:"directory"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
}

// SeenConfig selects the store of accessions handled by today's sweeps
type SeenConfig struct {
	Driver    string        `yaml:"driver"` // memory or redis
	RedisAddr string        `yaml:"redis_addr"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Mode string `yaml:"mode"` // development or production
}

// MetricsConfig contains the ops listener settings
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Driver:           "pgx",
			AccessionPattern: "SAMEA%",
			SweepPattern:     "SAM%",
			QueryAttempts:    5,
		},
		BioSamples: BioSamplesConfig{
			BaseURL:   "https://www.ebi.ac.uk/biosamples",
			Timeout:   60 * time.Second,
			RateLimit: 0,
			Burst:     1,
			ENADomain: "self.BiosampleImportNCBI",
		},
		Pipeline: PipelineConfig{
			Name:          "ena",
			Threads:       8,
			MinThreads:    1,
			MaxThreads:    64,
			MaxInFlight:   100,
			MaxRetries:    5,
			RetryDelay:    time.Second,
			SubmitTimeout: 2 * time.Minute,
		},
		RunStore: RunStoreConfig{
			Path: paths.GetRunStorePath(),
		},
		Artifacts: ArtifactsConfig{
			Driver:    "file",
			Directory: paths.GetArtifactsPath(),
		},
		Seen: SeenConfig{
			Driver: "memory",
			Prefix: "enaimport:handled",
			TTL:    36 * time.Hour,
		},
		Logging: LoggingConfig{
			Mode: "development",
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load loads configuration from a file and applies environment overrides
func Load(path string) (*Config, error) {
	const op = apperrors.Op("config.Load")

	// Start with defaults
	config := DefaultConfig()

	// Missing file means defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.E(op, apperrors.KindConfig, err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, apperrors.E(op, apperrors.KindConfig, err, "failed to parse config file")
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, apperrors.E(op, apperrors.KindConfig, err)
	}

	config.RunStore.Path = expandPath(config.RunStore.Path)
	config.Artifacts.Directory = expandPath(config.Artifacts.Directory)

	return config, nil
}

// applyEnv overrides secrets and connection settings from ENAIMPORT_* variables
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"ENAIMPORT_SOURCE_DRIVER":    &c.Source.Driver,
		"ENAIMPORT_DSN":              &c.Source.DSN,
		"ENAIMPORT_BIOSAMPLES_URL":   &c.BioSamples.BaseURL,
		"ENAIMPORT_TOKEN":            &c.BioSamples.Token,
		"ENAIMPORT_WEBIN_SUPERUSER":  &c.BioSamples.WebinSuperuser,
		"ENAIMPORT_RUNSTORE":         &c.RunStore.Path,
		"ENAIMPORT_ARTIFACTS_BUCKET": &c.Artifacts.Bucket,
		"ENAIMPORT_REDIS_ADDR":       &c.Seen.RedisAddr,
		"ENAIMPORT_LOG_MODE":         &c.Logging.Mode,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("ENAIMPORT_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ENAIMPORT_THREADS: %w", err)
		}
		c.Pipeline.Threads = n
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	const op = apperrors.Op("config.Validate")
	invalid := func(format string, args ...interface{}) error {
		return apperrors.E(op, apperrors.KindConfig, fmt.Errorf(format, args...))
	}

	switch c.Source.Driver {
	case "pgx", "sqlite3":
	default:
		return invalid("source.driver must be pgx or sqlite3, got %q", c.Source.Driver)
	}
	if u, err := url.Parse(c.BioSamples.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("biosamples.base_url is not an absolute URL: %q", c.BioSamples.BaseURL)
	}
	if c.BioSamples.RateLimit < 0 {
		return invalid("biosamples.rate_limit must not be negative")
	}
	if c.Pipeline.MaxThreads > 0 && c.Pipeline.MinThreads > c.Pipeline.MaxThreads {
		return invalid("pipeline.min_threads %d exceeds max_threads %d", c.Pipeline.MinThreads, c.Pipeline.MaxThreads)
	}
	if c.Pipeline.MaxRetries < 1 {
		return invalid("pipeline.max_retries must be at least 1")
	}
	if c.Pipeline.RetryDelay < 0 || c.Pipeline.SubmitTimeout < 0 {
		return invalid("pipeline delays must not be negative")
	}
	switch c.Artifacts.Driver {
	case "file":
		if c.Artifacts.Directory == "" {
			return invalid("artifacts.directory is required for the file driver")
		}
	case "s3":
		if c.Artifacts.Bucket == "" {
			return invalid("artifacts.bucket is required for the s3 driver")
		}
	default:
		return invalid("artifacts.driver must be file or s3, got %q", c.Artifacts.Driver)
	}
	switch c.Seen.Driver {
	case "memory":
	case "redis":
		if c.Seen.RedisAddr == "" {
			return invalid("seen.redis_addr is required for the redis driver")
		}
	default:
		return invalid("seen.driver must be memory or redis, got %q", c.Seen.Driver)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold the BioSamples token
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("ENAIMPORT_CONFIG"); path != "" {
		return path
	}

	// Check current directory
	if _, err := os.Stat("enaimport.yaml"); err == nil {
		return "enaimport.yaml"
	}

	// Use default location
	p := paths.GetPaths()
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
