// SPDX-License-Identifier: MIT

// Package config loads stax settings from a JSON file merged with
// environment overrides. Environment always wins over file values; the
// database path in particular honors STAX_DB_PATH so a deployment can point
// every workstation at the same network share without editing files.
package config

import (
	"fmt"
	"time"
)

// LockSettings bound advisory lock acquisition.
type LockSettings struct {
	TimeoutMS    int `json:"timeout_ms"`
	RetryDelayMS int `json:"retry_delay_ms"`
	BackoffCapMS int `json:"backoff_cap_ms"`
	MaxRetries   int `json:"max_retries"`
}

// EngineSettings tune the embedded SQLite engine.
type EngineSettings struct {
	BusyTimeoutMS int    `json:"busy_timeout_ms"`
	JournalMode   string `json:"journal_mode"`
	Synchronous   string `json:"synchronous"`
	CacheKB       int    `json:"cache_kb"`
}

// Config is the full stax configuration surface.
type Config struct {
	// DatabasePath locates the shared catalog database. Relative values are
	// resolved against DataRoot, never the process working directory.
	DatabasePath string `json:"database_path"`
	// DataRoot anchors relative paths. Empty means the executable directory.
	DataRoot string         `json:"data_root,omitempty"`
	LogLevel string         `json:"log_level,omitempty"`
	Lock     LockSettings   `json:"lock"`
	Engine   EngineSettings `json:"engine"`
}

// Default returns the configuration used when no file is present. The lock
// and engine tuning mirror what has proven workable on SMB/NFS mounts.
func Default() Config {
	return Config{
		DatabasePath: "data/catalog.db",
		LogLevel:     "info",
		Lock: LockSettings{
			TimeoutMS:    30_000,
			RetryDelayMS: 100,
			BackoffCapMS: 2_000,
			MaxRetries:   100,
		},
		Engine: EngineSettings{
			BusyTimeoutMS: 60_000,
			JournalMode:   "WAL",
			Synchronous:   "NORMAL",
			CacheKB:       16_000,
		},
	}
}

// Validate rejects values that would make the locking layer misbehave.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.Lock.TimeoutMS <= 0 {
		return fmt.Errorf("lock.timeout_ms must be positive, got %d", c.Lock.TimeoutMS)
	}
	if c.Lock.RetryDelayMS <= 0 {
		return fmt.Errorf("lock.retry_delay_ms must be positive, got %d", c.Lock.RetryDelayMS)
	}
	if c.Lock.BackoffCapMS < c.Lock.RetryDelayMS {
		return fmt.Errorf("lock.backoff_cap_ms (%d) must not be below lock.retry_delay_ms (%d)",
			c.Lock.BackoffCapMS, c.Lock.RetryDelayMS)
	}
	if c.Lock.MaxRetries <= 0 {
		return fmt.Errorf("lock.max_retries must be positive, got %d", c.Lock.MaxRetries)
	}
	if c.Engine.BusyTimeoutMS <= 0 {
		return fmt.Errorf("engine.busy_timeout_ms must be positive, got %d", c.Engine.BusyTimeoutMS)
	}
	switch c.Engine.JournalMode {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY":
	default:
		return fmt.Errorf("engine.journal_mode %q is not a SQLite journal mode", c.Engine.JournalMode)
	}
	switch c.Engine.Synchronous {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("engine.synchronous %q is not a SQLite synchronous level", c.Engine.Synchronous)
	}
	if c.Engine.CacheKB <= 0 {
		return fmt.Errorf("engine.cache_kb must be positive, got %d", c.Engine.CacheKB)
	}
	return nil
}

// LockTimeout returns the lock acquisition bound as a Duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutMS) * time.Millisecond
}

// LockRetryDelay returns the initial backoff delay as a Duration.
func (c Config) LockRetryDelay() time.Duration {
	return time.Duration(c.Lock.RetryDelayMS) * time.Millisecond
}

// LockBackoffCap returns the backoff ceiling as a Duration.
func (c Config) LockBackoffCap() time.Duration {
	return time.Duration(c.Lock.BackoffCapMS) * time.Millisecond
}

// BusyTimeout returns the engine busy budget as a Duration.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.Engine.BusyTimeoutMS) * time.Millisecond
}
