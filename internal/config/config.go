// Package config loads ledgerkey settings from defaults, an optional YAML
// file and LEDGERKEY_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illarion/ledgerkey/internal/pbes2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile     = "ledgerkey.yaml"
	DefaultStore    = ".ledgerkey"
	DefaultMode     = "dev"
	DefaultLogLevel = "warn"
)

// Environment variables
const (
	EnvConfig        = "LEDGERKEY_CONFIG"
	EnvStore         = "LEDGERKEY_STORE"
	EnvMaxIterations = "LEDGERKEY_MAX_ITERATIONS"
	EnvMode          = "LEDGERKEY_MODE"
	EnvMetricsFile   = "LEDGERKEY_METRICS_FILE"
	EnvLogLevel      = "LEDGERKEY_LOG_LEVEL"
)

// Config holds the effective settings
type Config struct {
	Store            string
	MaxIterations    int
	MinPasswordScore int
	Mode             string
	MetricsFile      string
	LogLevel         string
	Loader           LoaderConfig
}

// LoaderConfig controls remote JSON-LD context fetching
type LoaderConfig struct {
	Remote            bool
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// File is the YAML layout of ledgerkey.yaml
type File struct {
	Store  string `yaml:"store"`
	Unwrap struct {
		MaxIterations int `yaml:"maxIterations"`
	} `yaml:"unwrap"`
	Password struct {
		MinScore int `yaml:"minScore"`
	} `yaml:"password"`
	Proofs struct {
		Mode string `yaml:"mode"`
	} `yaml:"proofs"`
	Metrics struct {
		File string `yaml:"file"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Loader struct {
		Remote            *bool         `yaml:"remote"`
		RequestsPerSecond float64       `yaml:"requestsPerSecond"`
		Burst             int           `yaml:"burst"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"loader"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Store:    DefaultStore,
		Mode:     DefaultMode,
		LogLevel: DefaultLogLevel,
		Loader: LoaderConfig{
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           10 * time.Second,
		},
	}
}

// Load builds the effective configuration. An explicit path (argument or
// LEDGERKEY_CONFIG) must exist; the default ledgerkey.yaml is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if path == "" {
		path = DefaultFile
		explicit = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed File
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		Merge(&cfg, parsed)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Merge copies the non-zero settings of src into dst
func Merge(dst *Config, src File) {
	if src.Store != "" {
		dst.Store = src.Store
	}
	if src.Unwrap.MaxIterations != 0 {
		dst.MaxIterations = src.Unwrap.MaxIterations
	}
	if src.Password.MinScore != 0 {
		dst.MinPasswordScore = src.Password.MinScore
	}
	if src.Proofs.Mode != "" {
		dst.Mode = src.Proofs.Mode
	}
	if src.Metrics.File != "" {
		dst.MetricsFile = src.Metrics.File
	}
	if src.Log.Level != "" {
		dst.LogLevel = src.Log.Level
	}
	if src.Loader.Remote != nil {
		dst.Loader.Remote = *src.Loader.Remote
	}
	if src.Loader.RequestsPerSecond != 0 {
		dst.Loader.RequestsPerSecond = src.Loader.RequestsPerSecond
	}
	if src.Loader.Burst != 0 {
		dst.Loader.Burst = src.Loader.Burst
	}
	if src.Loader.Timeout != 0 {
		dst.Loader.Timeout = src.Loader.Timeout
	}
}

// ApplyEnvOverrides applies LEDGERKEY_* variables to cfg
func ApplyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		cfg.Store = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMode)); v != "" {
		cfg.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricsFile)); v != "" {
		cfg.MetricsFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxIterations)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %q", EnvMaxIterations, v)
		}
		cfg.MaxIterations = n
	}
	return nil
}

// Validate checks settings that cannot be defaulted
func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("unwrap.maxIterations must not be negative")
	}
	if c.MaxIterations > 0 && c.MaxIterations < pbes2.Iterations {
		return fmt.Errorf("unwrap.maxIterations %d is below %d, the iteration count of the store's own envelopes",
			c.MaxIterations, pbes2.Iterations)
	}
	if c.MinPasswordScore < 0 || c.MinPasswordScore > 4 {
		return fmt.Errorf("password.minScore must be between 0 and 4")
	}
	if c.Loader.RequestsPerSecond <= 0 || c.Loader.Burst <= 0 {
		return fmt.Errorf("loader.requestsPerSecond and loader.burst must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
