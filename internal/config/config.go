package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// GitLabConfig holds connection settings for the GitLab instance.
type GitLabConfig struct {
	URL     string `toml:"url"`
	Token   string `toml:"token,omitempty"`
	Project string `toml:"project"`
}

// Config holds all pipewatch configuration.
type Config struct {
	GitLab          GitLabConfig `toml:"gitlab"`
	RefreshInterval int          `toml:"refresh_interval"` // seconds
	MaxPipelines    int          `toml:"max_pipelines"`
}

const (
	defaultRefreshSeconds = 30
	defaultMaxPipelines   = 50
)

// RefreshIntervalOrDefault returns the auto-refresh interval as a duration.
func (c Config) RefreshIntervalOrDefault() time.Duration {
	if c.RefreshInterval > 0 {
		return time.Duration(c.RefreshInterval) * time.Second
	}
	return defaultRefreshSeconds * time.Second
}

// MaxPipelinesOrDefault returns how many pipelines list calls request.
func (c Config) MaxPipelinesOrDefault() int {
	if c.MaxPipelines > 0 {
		return c.MaxPipelines
	}
	return defaultMaxPipelines
}

// Validate reports whether the settings required to reach the API are set.
func (c Config) Validate() error {
	if c.GitLab.URL == "" {
		return errors.New("GITLAB_URL not set: set it via environment variable or config file")
	}
	if c.GitLab.Token == "" {
		return errors.New("GITLAB_TOKEN not set: set it via environment variable")
	}
	if c.GitLab.Project == "" {
		return errors.New("GITLAB_PROJECT not set: set it via environment variable or config file")
	}
	return nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - GITLAB_URL              overrides gitlab.url
//   - GITLAB_TOKEN            overrides gitlab.token
//   - GITLAB_PROJECT          overrides gitlab.project
//   - GITLAB_REFRESH_INTERVAL overrides refresh_interval
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the pipewatch config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pipewatch", "config.toml")
}

// DefaultCachePath returns the default path for the persisted response cache.
func DefaultCachePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "pipewatch", "pipelines_cache.db")
}

// DefaultLogPath returns the default path for the monitor log file.
func DefaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pipewatch", "pipewatch.log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "pipewatch", "pipewatch.log")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GITLAB_URL"); v != "" {
		cfg.GitLab.URL = v
	}
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv("GITLAB_PROJECT"); v != "" {
		cfg.GitLab.Project = v
	}
	if v := os.Getenv("GITLAB_REFRESH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RefreshInterval = n
		}
	}
}

// Save writes cfg to the given TOML file path, creating parent directories
// as needed. The token is never written to disk; it stays in the
// environment. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	cfg.GitLab.Token = ""
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
