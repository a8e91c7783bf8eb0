// SPDX-License-Identifier: MIT

// Package sqlite opens the shared catalog database safely. Network
// filesystems do not reliably honor SQLite's native locks, so every
// connection goes through a two-level defense: the advisory sidecar lock
// (cross-process, cross-host) and the engine's own busy retry for the
// residual race window inside a held lock.
package sqlite

import (
	"fmt"
	"time"

	"github.com/kestrelfx/stax/internal/backoff"
	appcfg "github.com/kestrelfx/stax/internal/config"
)

// Config defines the operational parameters for one catalog database.
type Config struct {
	// Root anchors relative database paths. Empty means the executable dir.
	Root string

	// Advisory lock bounds.
	LockTimeout    time.Duration
	LockRetryDelay time.Duration
	LockBackoffCap time.Duration
	LockMaxRetries int
	// DisableLock skips the sidecar lock entirely. Only safe on local,
	// single-process databases; tests use it to provoke engine-level busy
	// errors.
	DisableLock bool

	// Engine tuning.
	BusyTimeout time.Duration
	JournalMode string
	Synchronous string
	CacheKB     int

	// Sleeper is used for busy-retry waits. Nil means real sleeps.
	Sleeper backoff.Sleeper
}

// DefaultConfig mirrors the tuning that has proven workable for catalogs on
// SMB/NFS mounts: WAL journaling, balanced durability, a 16MB page cache and
// a generous busy budget.
func DefaultConfig() Config {
	return Config{
		LockTimeout:    30 * time.Second,
		LockRetryDelay: 100 * time.Millisecond,
		LockBackoffCap: 2 * time.Second,
		LockMaxRetries: 100,
		BusyTimeout:    60 * time.Second,
		JournalMode:    "WAL",
		Synchronous:    "NORMAL",
		CacheKB:        16_000,
	}
}

// FromAppConfig maps the application configuration onto engine parameters.
func FromAppConfig(c appcfg.Config) Config {
	return Config{
		Root:           c.DataRoot,
		LockTimeout:    c.LockTimeout(),
		LockRetryDelay: c.LockRetryDelay(),
		LockBackoffCap: c.LockBackoffCap(),
		LockMaxRetries: c.Lock.MaxRetries,
		BusyTimeout:    c.BusyTimeout(),
		JournalMode:    c.Engine.JournalMode,
		Synchronous:    c.Engine.Synchronous,
		CacheKB:        c.Engine.CacheKB,
	}
}

func (c *Config) fill() {
	d := DefaultConfig()
	if c.LockTimeout <= 0 {
		c.LockTimeout = d.LockTimeout
	}
	if c.LockRetryDelay <= 0 {
		c.LockRetryDelay = d.LockRetryDelay
	}
	if c.LockBackoffCap <= 0 {
		c.LockBackoffCap = d.LockBackoffCap
	}
	if c.LockMaxRetries <= 0 {
		c.LockMaxRetries = d.LockMaxRetries
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = d.BusyTimeout
	}
	if c.JournalMode == "" {
		c.JournalMode = d.JournalMode
	}
	if c.Synchronous == "" {
		c.Synchronous = d.Synchronous
	}
	if c.CacheKB <= 0 {
		c.CacheKB = d.CacheKB
	}
	if c.Sleeper == nil {
		c.Sleeper = backoff.RealSleeper{}
	}
}

// dsn builds the modernc.org/sqlite connection string. The _pragma form
// guarantees the settings apply to every connection the pool opens, and a
// negative cache_size means KB rather than pages.
func (c Config) dsn(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)&_pragma=synchronous(%s)&_pragma=foreign_keys(ON)&_pragma=cache_size(-%d)",
		path, c.JournalMode, c.BusyTimeout.Milliseconds(), c.Synchronous, c.CacheKB)
}

func (c Config) lockPolicy() backoff.Policy {
	p := backoff.Default()
	p.Initial = c.LockRetryDelay
	p.Cap = c.LockBackoffCap
	return p
}
