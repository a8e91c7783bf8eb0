// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DatabasePath = "" }},
		{"zero lock timeout", func(c *Config) { c.Lock.TimeoutMS = 0 }},
		{"negative retry delay", func(c *Config) { c.Lock.RetryDelayMS = -1 }},
		{"cap below initial delay", func(c *Config) { c.Lock.BackoffCapMS = 10; c.Lock.RetryDelayMS = 100 }},
		{"zero retries", func(c *Config) { c.Lock.MaxRetries = 0 }},
		{"zero busy timeout", func(c *Config) { c.Engine.BusyTimeoutMS = 0 }},
		{"bogus journal mode", func(c *Config) { c.Engine.JournalMode = "ROLLING" }},
		{"bogus synchronous", func(c *Config) { c.Engine.Synchronous = "MAYBE" }},
		{"zero cache", func(c *Config) { c.Engine.CacheKB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().DatabasePath, cfg.DatabasePath)
}

func TestLoadFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stax.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_path": "/mnt/share/catalog.db",
		"lock": {"timeout_ms": 10000, "retry_delay_ms": 50, "backoff_cap_ms": 1000, "max_retries": 20},
		"engine": {"busy_timeout_ms": 5000, "journal_mode": "WAL", "synchronous": "NORMAL", "cache_kb": 8000}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/share/catalog.db", cfg.DatabasePath)
	assert.Equal(t, 10000, cfg.Lock.TimeoutMS)
	assert.Equal(t, 20, cfg.Lock.MaxRetries)
	assert.Equal(t, 5000, cfg.Engine.BusyTimeoutMS)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stax.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"databse_path": "typo.db"}`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stax.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_path": "/from/file.db"}`), 0o644))

	t.Setenv(EnvDBPath, "/from/env.db")
	t.Setenv(EnvLockTimeoutMS, "12345")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DatabasePath)
	assert.Equal(t, 12345, cfg.Lock.TimeoutMS)
}

func TestParseIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv(EnvLockMaxRetries, "soon")
	assert.Equal(t, 42, ParseInt(EnvLockMaxRetries, 42))
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stax.json")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, Default(), cfg)

	// Second call must leave the existing file alone.
	require.NoError(t, os.WriteFile(path, []byte(`{"database_path": "keep.db"}`), 0o644))
	require.NoError(t, WriteDefault(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep.db")
}
