// Package config loads the questcore YAML configuration with sensible
// defaults for every field, so an empty file (or no file at all) yields a
// working in-memory setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forbiddenlink/finance-quest-core/internal/logging"
)

// Config represents the main configuration structure
type Config struct {
	Cache       CacheConfig       `yaml:"cache"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Review      ReviewConfig      `yaml:"review"`
	Logging     logging.LogConfig `yaml:"logging"`
}

// CacheConfig configures the calculator-result cache store
type CacheConfig struct {
	Namespace     string        `yaml:"namespace"`
	Version       string        `yaml:"version"`
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`    // 0 = unbounded
	SlotKey       string        `yaml:"slot_key"`       // empty = namespace
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 = no background sweep
}

// PersistenceConfig selects the durable slot backend
type PersistenceConfig struct {
	Backend string `yaml:"backend"` // "memory", "file", "bolt"
	Path    string `yaml:"path"`    // data directory (file) or database file (bolt)
}

// ReviewConfig configures the spaced-repetition session
type ReviewConfig struct {
	MaxDueItems int    `yaml:"max_due_items"`
	SlotKey     string `yaml:"slot_key"` // slot holding the review item collection
}

// Load reads and parses the configuration file. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	config := &Config{
		Cache: CacheConfig{
			Namespace:     "questcore",
			Version:       "1.0.0",
			TTL:           24 * time.Hour,
			MaxEntries:    1000,
			SweepInterval: time.Minute,
		},
		Persistence: PersistenceConfig{
			Backend: "memory",
		},
		Review: ReviewConfig{
			MaxDueItems: 10,
			SlotKey:     "review-items",
		},
		Logging: logging.LogConfig{
			Level:         "info",
			EnableConsole: true,
			BufferSize:    256,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case "memory", "file", "bolt":
	default:
		return fmt.Errorf("unknown persistence backend: %s", c.Persistence.Backend)
	}
	if c.Persistence.Backend != "memory" && c.Persistence.Path == "" {
		return fmt.Errorf("persistence backend %s requires a path", c.Persistence.Backend)
	}
	if c.Cache.Namespace == "" {
		return fmt.Errorf("cache namespace cannot be empty")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries cannot be negative")
	}
	if c.Review.MaxDueItems <= 0 {
		return fmt.Errorf("review max_due_items must be positive")
	}
	return nil
}
