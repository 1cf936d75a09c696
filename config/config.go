// Package config holds runtime configuration for the zktree CLI and for
// embedding callers, with defaults overridable from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zktools/zktree/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultServer = "127.0.0.1:2181"

	// DefaultSessionTimeout matches the common ensemble tickTime * 5.
	DefaultSessionTimeout = 10 * time.Second

	// DefaultUseContainers keeps created nodes persistent.
	DefaultUseContainers = false

	// DefaultMaxDeleteRetries of 0 retries delete conflicts forever.
	DefaultMaxDeleteRetries = 0

	DefaultLogLvl = util.InfoLevel
)

// Config contains resolved runtime configuration values.
type Config struct {
	Servers          []string      // Ensemble addresses (Default 127.0.0.1:2181)
	SessionTimeout   time.Duration // Session timeout for the connection (Default 10s)
	UseContainers    bool          // Create intermediate nodes in container mode when supported (Default false)
	MaxDeleteRetries int           // Bound on delete-conflict retries; 0 retries forever (Default 0)
	LogLvl           util.LogLevel // Log verbosity (Default info)
}

// Override uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type Override struct {
	Servers          []string `yaml:"servers,omitempty" json:"servers,omitempty"`
	SessionTimeoutMS *int     `yaml:"session_timeout_ms,omitempty" json:"session_timeout_ms,omitempty"`
	UseContainers    *bool    `yaml:"use_containers,omitempty" json:"use_containers,omitempty"`
	MaxDeleteRetries *int     `yaml:"max_delete_retries,omitempty" json:"max_delete_retries,omitempty"`
	LogLvl           *int     `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		Servers:          []string{DefaultServer},
		SessionTimeout:   DefaultSessionTimeout,
		UseContainers:    DefaultUseContainers,
		MaxDeleteRetries: DefaultMaxDeleteRetries,
		LogLvl:           DefaultLogLvl,
	}
}

// NewConfig creates a Config from defaults plus an optional override.
func NewConfig(override *Override) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config, preserving
// existing values for unset fields.
func (c *Config) Merge(override *Override) {
	if override.Servers != nil {
		c.Servers = override.Servers
	}
	if override.SessionTimeoutMS != nil {
		c.SessionTimeout = time.Duration(*override.SessionTimeoutMS) * time.Millisecond
	}
	if override.UseContainers != nil {
		c.UseContainers = *override.UseContainers
	}
	if override.MaxDeleteRetries != nil {
		c.MaxDeleteRetries = *override.MaxDeleteRetries
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// LoadOverrideFile loads configuration overrides from a file without
// merging. Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadOverrideFile(path string) (*Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override Override

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with
// defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
