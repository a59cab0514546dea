// Package config assembles the run configuration from defaults, an optional
// YAML file, the environment (including a .env file) and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/NicabarNimble/go-gitrip/internal/analytics"
	"github.com/NicabarNimble/go-gitrip/internal/github"
	"github.com/NicabarNimble/go-gitrip/internal/scheduler"
	"github.com/NicabarNimble/go-gitrip/internal/urlutils"
)

const (
	// DefaultConfigFile is read from the working directory when present
	DefaultConfigFile = ".gitrip.yaml"

	// DefaultEnvFile is loaded into the environment when present
	DefaultEnvFile = ".env"

	EnvDirectory = "GITRIP_DIR"
	EnvWorkers   = "GITRIP_WORKERS"
)

// Config is everything a run needs.
type Config struct {
	Username string      `yaml:"-"`
	Mode     github.Mode `yaml:"-"`
	Token    string      `yaml:"-"`

	Directory        string `yaml:"directory"`
	Depth            int    `yaml:"depth"`
	Sync             bool   `yaml:"sync"`
	LFS              bool   `yaml:"lfs"`
	Workers          int    `yaml:"workers"`
	AnalyticsFile    string `yaml:"analytics_file"`
	DisableAnalytics bool   `yaml:"disable_analytics"`
	Verbose          bool   `yaml:"verbose"`
}

// DefaultConfig provides default configuration values
func DefaultConfig() *Config {
	return &Config{
		Directory: ".",
		Workers:   scheduler.DefaultWorkers,
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.MergeDefaults()
	return cfg, nil
}

// LoadEnvFile adds the variables of a dotenv file to the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from GITRIP_* variables.
func (c *Config) ApplyEnv() error {
	if dir := strings.TrimSpace(os.Getenv(EnvDirectory)); dir != "" {
		c.Directory = dir
	}
	if raw := strings.TrimSpace(os.Getenv(EnvWorkers)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", EnvWorkers, raw)
		}
		c.Workers = n
	}
	return nil
}

// MergeDefaults merges default values for unset fields
func (c *Config) MergeDefaults() {
	defaults := DefaultConfig()
	if c.Directory == "" {
		c.Directory = defaults.Directory
	}
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !urlutils.ValidOwner(c.Username) {
		return fmt.Errorf("config: invalid GitHub username %q", c.Username)
	}
	if _, err := github.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Depth < 0 {
		return fmt.Errorf("config: depth cannot be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	if strings.TrimSpace(c.Directory) == "" {
		return fmt.Errorf("config: directory cannot be empty")
	}
	return nil
}

// AnalyticsPath is the analytics file for this run, or "" when disabled.
func (c *Config) AnalyticsPath() string {
	if c.DisableAnalytics {
		return ""
	}
	if c.AnalyticsFile != "" {
		return c.AnalyticsFile
	}
	return analytics.DefaultPath(c.Username)
}
