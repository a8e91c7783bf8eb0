// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"

	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/rs/zerolog"
)

// Environment variable names recognized by the catalog core.
const (
	EnvDBPath         = "STAX_DB_PATH"
	EnvDataRoot       = "STAX_DATA_ROOT"
	EnvLogLevel       = "STAX_LOG_LEVEL"
	EnvLockTimeoutMS  = "STAX_LOCK_TIMEOUT_MS"
	EnvLockMaxRetries = "STAX_LOCK_MAX_RETRIES"
	EnvBusyTimeoutMS  = "STAX_BUSY_TIMEOUT_MS"
)

// ParseString reads a string from the environment or returns the default,
// logging the source for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(xlog.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from the environment or returns the default.
// Unparseable values fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	logger := xlog.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Int("default", defaultValue).
			Msg("environment variable is not an integer, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", n).
		Str("source", "environment").
		Msg("using environment variable")
	return n
}

// applyEnv overlays environment overrides onto c. Environment precedence
// over file values is part of the documented contract.
func applyEnv(c *Config) {
	c.DatabasePath = ParseString(EnvDBPath, c.DatabasePath)
	c.DataRoot = ParseString(EnvDataRoot, c.DataRoot)
	c.LogLevel = ParseString(EnvLogLevel, c.LogLevel)
	c.Lock.TimeoutMS = ParseInt(EnvLockTimeoutMS, c.Lock.TimeoutMS)
	c.Lock.MaxRetries = ParseInt(EnvLockMaxRetries, c.Lock.MaxRetries)
	c.Engine.BusyTimeoutMS = ParseInt(EnvBusyTimeoutMS, c.Engine.BusyTimeoutMS)
}
