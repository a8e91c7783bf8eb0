// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus collectors for the shared-catalog
// database core. No HTTP endpoint lives here; the embedding application
// exposes the default registry however it sees fit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockAcquireTotal counts advisory lock acquisition outcomes.
	// Outcome is one of "acquired", "timeout", "error".
	LockAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stax_lock_acquire_total",
		Help: "Total advisory lock acquisition attempts, by outcome.",
	}, []string{"outcome"})

	// LockRetryTotal counts contention retries during lock acquisition.
	LockRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stax_lock_retry_total",
		Help: "Total backoff sleeps caused by advisory lock contention.",
	})

	// LockWaitSeconds observes how long callers waited for the advisory lock.
	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stax_lock_wait_seconds",
		Help:    "Time spent waiting for the advisory lock.",
		Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// ConnectTotal counts database connection attempts by outcome.
	// Outcome is one of "ready", "lock_timeout", "busy", "directory",
	// "migration", "error".
	ConnectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stax_db_connect_total",
		Help: "Total database connection attempts, by outcome.",
	}, []string{"outcome"})

	// BusyRetryTotal counts engine-level busy retries performed after the
	// advisory lock was already held.
	BusyRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stax_db_busy_retry_total",
		Help: "Total engine busy retries performed while holding the advisory lock.",
	})

	// MigrationApplyTotal counts schema migration steps actually applied.
	MigrationApplyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stax_migration_apply_total",
		Help: "Total schema migration steps applied, by step name.",
	}, []string{"step"})
)
