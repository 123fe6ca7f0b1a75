// Package config loads the ambient tuning knobs shared by the
// hashdb-build, hashdb-query, and hashdb-add command-line tools: the
// external-sort memory budget, SQLite connection pragmas, and bulk-import
// batching.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the top-level on-disk configuration, loaded from YAML.
type Config struct {
	mux sync.Mutex `json:"-" yaml:"-"`

	// SortMemoryBudget bounds the in-memory chunk size of the external
	// merge sort used by make_index. Zero selects the package default.
	SortMemoryBudget int64 `json:"sort_memory_budget" yaml:"sort_memory_budget"`

	// BatchSize is the number of add_entry calls a bulk-import tool
	// wraps in a single begin/commit transaction pair.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

// SQLiteConfig overrides the connection-level pragmas applied by the
// sqlite-backed variant (spec §4.4).
type SQLiteConfig struct {
	Synchronous   string `json:"synchronous" yaml:"synchronous"`
	PageSize      int    `json:"page_size" yaml:"page_size"`
	BusyTimeoutMS int    `json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

const (
	DefaultBatchSize     = 1000
	DefaultPageSize      = 4096
	DefaultSynchronous   = "OFF"
	DefaultBusyTimeoutMS = 30000
)

// Default returns a Config with every field at its documented default.
func Default() *Config {
	return &Config{
		SortMemoryBudget: 0,
		BatchSize:        DefaultBatchSize,
		SQLite: SQLiteConfig{
			Synchronous:   DefaultSynchronous,
			PageSize:      DefaultPageSize,
			BusyTimeoutMS: DefaultBusyTimeoutMS,
		},
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// field left zero-valued.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.SQLite.PageSize <= 0 {
		c.SQLite.PageSize = DefaultPageSize
	}
	if c.SQLite.Synchronous == "" {
		c.SQLite.Synchronous = DefaultSynchronous
	}
	if c.SQLite.BusyTimeoutMS <= 0 {
		c.SQLite.BusyTimeoutMS = DefaultBusyTimeoutMS
	}
}

// Pragmas renders the SQLite configuration as the PRAGMA statements
// sqlitedb.OpenWithPragmas applies at connection time.
func (c *Config) Pragmas() []string {
	return []string{
		fmt.Sprintf("PRAGMA synchronous = %s", c.SQLite.Synchronous),
		"PRAGMA encoding = \"UTF-8\"",
		"PRAGMA read_uncommitted = True",
		fmt.Sprintf("PRAGMA page_size = %d", c.SQLite.PageSize),
		fmt.Sprintf("PRAGMA busy_timeout = %d", c.SQLite.BusyTimeoutMS),
	}
}
