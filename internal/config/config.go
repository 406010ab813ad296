// Package config loads the guidance engine's configuration from
// layered sources, in order of precedence:
//  1. Environment variables (STE_<SECTION>_<KEY>), highest priority
//  2. A YAML configuration file
//  3. Default values, lowest priority
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"unified-thinking/internal/health"
	"unified-thinking/internal/processor"
	"unified-thinking/internal/session"
	"unified-thinking/internal/store"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	Tree     TreeConfig     `yaml:"tree"`
	Health   HealthConfig   `yaml:"health"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains server-level identification.
type ServerConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// SessionConfig bounds per-session tracking and rate limiting.
type SessionConfig struct {
	MaxTrackedSessions   int `yaml:"max_tracked_sessions"`
	RateWindowSeconds    int `yaml:"rate_window_seconds"`
	SessionExpirySeconds int `yaml:"session_expiry_seconds"`
	CleanupIntervalSec   int `yaml:"cleanup_interval_seconds"`
	MaxRequestsPerWindow int `yaml:"max_requests_per_window"`
}

// StoreConfig bounds thought history retention.
type StoreConfig struct {
	MaxHistorySize       int `yaml:"max_history_size"`
	MaxThoughtsPerBranch int `yaml:"max_thoughts_per_branch"`
	MaxBranchAgeMinutes  int `yaml:"max_branch_age_minutes"`
}

// TreeConfig bounds the search-tree size per session.
type TreeConfig struct {
	MaxNodesPerTree int `yaml:"max_nodes_per_tree"`
}

// HealthConfig overrides the health rollup's trip points.
type HealthConfig struct {
	MaxStoragePercent      float64 `yaml:"max_storage_percent"`
	DegradedStoragePercent float64 `yaml:"degraded_storage_percent"`
	MaxResponseTimeMs      float64 `yaml:"max_response_time_ms"`
	DegradedResponseRatio  float64 `yaml:"degraded_response_ratio"`
	DegradedErrorRatePct   float64 `yaml:"degraded_error_rate_percent"`
	UnhealthyErrorRatePct  float64 `yaml:"unhealthy_error_rate_percent"`
}

// SnapshotConfig controls the optional sqlite-backed persistence layer.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration defaults, mirroring each
// component's own DefaultConfig().
func Default() *Config {
	sess := session.DefaultConfig()
	st := store.DefaultConfig()
	proc := processor.DefaultConfig()
	th := health.DefaultThresholds()

	return &Config{
		Server: ServerConfig{
			Name:        "unified-thinking-guidance",
			Version:     "1.0.0",
			Environment: "development",
		},
		Session: SessionConfig{
			MaxTrackedSessions:   sess.MaxTrackedSessions,
			RateWindowSeconds:    int(sess.RateWindow.Seconds()),
			SessionExpirySeconds: int(sess.SessionExpiry.Seconds()),
			CleanupIntervalSec:   int(sess.CleanupInterval.Seconds()),
			MaxRequestsPerWindow: proc.MaxRequestsPerWindow,
		},
		Store: StoreConfig{
			MaxHistorySize:       st.MaxHistorySize,
			MaxThoughtsPerBranch: st.MaxThoughtsPerBranch,
			MaxBranchAgeMinutes:  int(st.MaxBranchAge.Minutes()),
		},
		Tree: TreeConfig{
			MaxNodesPerTree: proc.MaxNodesPerTree,
		},
		Health: HealthConfig{
			MaxStoragePercent:      th.MaxStoragePercent,
			DegradedStoragePercent: th.DegradedStoragePercent,
			MaxResponseTimeMs:      th.MaxResponseTimeMs,
			DegradedResponseRatio:  th.DegradedResponseRatio,
			DegradedErrorRatePct:   th.DegradedErrorRatePct,
			UnhealthyErrorRatePct:  th.UnhealthyErrorRatePct,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from environment variables over defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file, then applies
// environment-variable overrides on top.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv applies STE_<SECTION>_<KEY> environment-variable
// overrides on top of whatever the config already holds.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("STE_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("STE_SERVER_VERSION"); v != "" {
		c.Server.Version = v
	}
	if v := os.Getenv("STE_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv("STE_SESSION_MAX_TRACKED_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxTrackedSessions = n
		}
	}
	if v := os.Getenv("STE_SESSION_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.RateWindowSeconds = n
		}
	}
	if v := os.Getenv("STE_SESSION_MAX_REQUESTS_PER_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxRequestsPerWindow = n
		}
	}
	if v := os.Getenv("STE_SESSION_SESSION_EXPIRY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.SessionExpirySeconds = n
		}
	}
	if v := os.Getenv("STE_SESSION_CLEANUP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.CleanupIntervalSec = n
		}
	}

	if v := os.Getenv("STE_STORE_MAX_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.MaxHistorySize = n
		}
	}
	if v := os.Getenv("STE_STORE_MAX_THOUGHTS_PER_BRANCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.MaxThoughtsPerBranch = n
		}
	}
	if v := os.Getenv("STE_STORE_MAX_BRANCH_AGE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.MaxBranchAgeMinutes = n
		}
	}

	if v := os.Getenv("STE_TREE_MAX_NODES_PER_TREE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tree.MaxNodesPerTree = n
		}
	}

	if v := os.Getenv("STE_SNAPSHOT_ENABLED"); v != "" {
		c.Snapshot.Enabled = parseBool(v)
	}
	if v := os.Getenv("STE_SNAPSHOT_PATH"); v != "" {
		c.Snapshot.Path = v
	}

	if v := os.Getenv("STE_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("server.environment must be one of: development, staging, production")
	}

	if c.Session.MaxTrackedSessions < 1 {
		return fmt.Errorf("session.max_tracked_sessions must be >= 1")
	}
	if c.Session.RateWindowSeconds < 1 {
		return fmt.Errorf("session.rate_window_seconds must be >= 1")
	}
	if c.Session.MaxRequestsPerWindow < 1 {
		return fmt.Errorf("session.max_requests_per_window must be >= 1")
	}

	if c.Store.MaxHistorySize < 1 {
		return fmt.Errorf("store.max_history_size must be >= 1")
	}
	if c.Store.MaxThoughtsPerBranch < 1 {
		return fmt.Errorf("store.max_thoughts_per_branch must be >= 1")
	}

	if c.Tree.MaxNodesPerTree < 1 {
		return fmt.Errorf("tree.max_nodes_per_tree must be >= 1")
	}

	if c.Snapshot.Enabled && c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must be set when snapshot.enabled is true")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// parseBool accepts the same loose boolean spellings the corpus does.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ProcessorConfig translates this configuration into the
// processor.Config the engine is actually constructed from.
func (c *Config) ProcessorConfig() processor.Config {
	return processor.Config{
		Session: session.Config{
			MaxTrackedSessions: c.Session.MaxTrackedSessions,
			RateWindow:         time.Duration(c.Session.RateWindowSeconds) * time.Second,
			SessionExpiry:      time.Duration(c.Session.SessionExpirySeconds) * time.Second,
			CleanupInterval:    time.Duration(c.Session.CleanupIntervalSec) * time.Second,
		},
		Store: store.Config{
			MaxHistorySize:       c.Store.MaxHistorySize,
			MaxThoughtsPerBranch: c.Store.MaxThoughtsPerBranch,
			MaxBranchAge:         time.Duration(c.Store.MaxBranchAgeMinutes) * time.Minute,
		},
		MaxNodesPerTree:      c.Tree.MaxNodesPerTree,
		MaxRequestsPerWindow: c.Session.MaxRequestsPerWindow,
		Thresholds: health.Thresholds{
			MaxStoragePercent:      c.Health.MaxStoragePercent,
			DegradedStoragePercent: c.Health.DegradedStoragePercent,
			MaxResponseTimeMs:      c.Health.MaxResponseTimeMs,
			DegradedResponseRatio:  c.Health.DegradedResponseRatio,
			DegradedErrorRatePct:   c.Health.DegradedErrorRatePct,
			UnhealthyErrorRatePct:  c.Health.UnhealthyErrorRatePct,
		},
	}
}

// ToYAML serialises the configuration back to YAML.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// SaveToFile writes the configuration to path as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
