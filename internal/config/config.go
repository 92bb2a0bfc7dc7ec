// Package config loads configuration from a yaml file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SYNCSESSION_"

// Config holds client configuration.
type Config struct {
	// Logging
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	// Local state
	DataDir         string `yaml:"data_dir" env:"DATA_DIR"`
	AccountsFile    string `yaml:"accounts_file" env:"ACCOUNTS_FILE"`
	PreferencesFile string `yaml:"preferences_file" env:"PREFERENCES_FILE"`

	// Local cache ("sqlite", "postgres" or "memory")
	CacheDriver string `yaml:"cache_driver" env:"CACHE_DRIVER"`
	CacheDSN    string `yaml:"cache_dsn" env:"CACHE_DSN"`

	// Remote
	HTTPTimeout        time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
	UserAgent          string        `yaml:"user_agent" env:"USER_AGENT"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`

	// Metrics endpoint, empty to disable
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// SearchPaths lists the config file locations tried when no explicit path is given.
func SearchPaths() []string {
	paths := []string{"./syncsession.yaml", "./config/syncsession.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "syncsession", "syncsession.yaml"))
	}
	return append(paths, "/etc/syncsession/syncsession.yaml")
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	dataDir := "./.syncsession"
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "syncsession")
	}
	return &Config{
		LogLevel:    "info",
		LogFormat:   "console",
		DataDir:     dataDir,
		CacheDriver: "sqlite",
		HTTPTimeout: 30 * time.Second,
		UserAgent:   "syncsession",
	}
}

// Load reads the yaml file at path (or the first one found in SearchPaths
// when path is empty), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return data, nil
	}
	for _, p := range SearchPaths() {
		data, err := os.ReadFile(filepath.Clean(p))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}
	return nil, nil
}

func (c *Config) fillPaths() {
	if c.AccountsFile == "" {
		c.AccountsFile = filepath.Join(c.DataDir, "accounts.yaml")
	}
	if c.PreferencesFile == "" {
		c.PreferencesFile = filepath.Join(c.DataDir, "preferences.yaml")
	}
	if c.CacheDriver == "sqlite" && c.CacheDSN == "" {
		c.CacheDSN = filepath.Join(c.DataDir, "cache.db")
	}
}

// Validate checks for settings that cannot work together.
func (c *Config) Validate() error {
	switch c.CacheDriver {
	case "sqlite", "memory":
	case "postgres":
		if c.CacheDSN == "" {
			return fmt.Errorf("cache_dsn is required for the postgres cache driver")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.CacheDriver)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative")
	}
	return nil
}
