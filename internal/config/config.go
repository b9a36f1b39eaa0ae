package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the weights CLI.
type Config struct {
	Repo        string      `yaml:"repo"`
	Release     string      `yaml:"release"`
	WeightsDir  string      `yaml:"weights_dir"`
	MirrorURL   string      `yaml:"mirror_url"`
	TagMarker   string      `yaml:"tag_marker"`
	Verbose     bool        `yaml:"verbose"`
	WorkerLimit int         `yaml:"worker_limit"`
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig defines retry behavior for the resumable transport.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Repo:        "ultralytics/yolov5",
		Release:     "v7.0",
		WeightsDir:  ".",
		WorkerLimit: 8,
		Retry: RetryConfig{
			Attempts:   9,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Repo        string          `yaml:"repo"`
	Release     string          `yaml:"release"`
	WeightsDir  string          `yaml:"weights_dir"`
	MirrorURL   string          `yaml:"mirror_url"`
	TagMarker   string          `yaml:"tag_marker"`
	Verbose     bool            `yaml:"verbose"`
	WorkerLimit int             `yaml:"worker_limit"`
	Retry       yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Repo != "" {
		cfg.Repo = yc.Repo
	}
	if yc.Release != "" {
		cfg.Release = yc.Release
	}
	if yc.WeightsDir != "" {
		cfg.WeightsDir = yc.WeightsDir
	}
	if yc.MirrorURL != "" {
		cfg.MirrorURL = yc.MirrorURL
	}
	if yc.TagMarker != "" {
		cfg.TagMarker = yc.TagMarker
	}
	cfg.Verbose = yc.Verbose
	if yc.WorkerLimit != 0 {
		cfg.WorkerLimit = yc.WorkerLimit
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the WEIGHTS_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("WEIGHTS_REPO"); v != "" {
		c.Repo = v
	}
	if v := os.Getenv("WEIGHTS_RELEASE"); v != "" {
		c.Release = v
	}
	if v := os.Getenv("WEIGHTS_DIR"); v != "" {
		c.WeightsDir = v
	}
	if v := os.Getenv("WEIGHTS_MIRROR_URL"); v != "" {
		c.MirrorURL = v
	}
	if v := os.Getenv("WEIGHTS_TAG_MARKER"); v != "" {
		c.TagMarker = v
	}
	if v := os.Getenv("WEIGHTS_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv("WEIGHTS_WORKER_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse WEIGHTS_WORKER_LIMIT: %w", err)
		}
		c.WorkerLimit = n
	}
	if v := os.Getenv("WEIGHTS_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse WEIGHTS_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("WEIGHTS_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse WEIGHTS_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("WEIGHTS_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse WEIGHTS_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Repo == "" {
		return errors.New("config: repo is required")
	}
	if !strings.Contains(c.Repo, "/") {
		return fmt.Errorf("config: repo %q must be owner/name", c.Repo)
	}
	if c.Release == "" {
		return errors.New("config: release is required")
	}
	if c.WorkerLimit < 0 {
		return errors.New("config: worker_limit must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Repo != "" {
		c.Repo = override.Repo
	}
	if override.Release != "" {
		c.Release = override.Release
	}
	if override.WeightsDir != "" {
		c.WeightsDir = override.WeightsDir
	}
	if override.MirrorURL != "" {
		c.MirrorURL = override.MirrorURL
	}
	if override.TagMarker != "" {
		c.TagMarker = override.TagMarker
	}
	if override.Verbose {
		c.Verbose = override.Verbose
	}
	if override.WorkerLimit != 0 {
		c.WorkerLimit = override.WorkerLimit
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}
