// SPDX-License-Identifier: MIT

// Package backoff computes retry delays for lock acquisition and engine
// busy-retry loops. The policy is a pure function of the attempt number so
// tests can verify delays without sleeping.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy computes an exponentially growing delay with multiplicative jitter
// and an upper cap.
type Policy struct {
	Initial    time.Duration // delay for attempt 0, before jitter
	Factor     float64       // exponential growth factor per attempt
	Cap        time.Duration // upper bound applied after jitter
	JitterLow  float64       // lower jitter multiplier bound
	JitterHigh float64       // upper jitter multiplier bound

	// Rand supplies jitter randomness. Nil uses the shared math/rand source;
	// tests inject a seeded source for determinism.
	Rand *rand.Rand
}

// Default mirrors the tuning used for network-share lock contention:
// 100ms initial, 1.5x growth, 2s cap, jitter in [0.8, 1.2].
func Default() Policy {
	return Policy{
		Initial:    100 * time.Millisecond,
		Factor:     1.5,
		Cap:        2 * time.Second,
		JitterLow:  0.8,
		JitterHigh: 1.2,
	}
}

// Delay returns the sleep duration before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 1
	}
	d := float64(p.Initial) * math.Pow(factor, float64(attempt))
	d *= p.jitter()
	if p.Cap > 0 && d > float64(p.Cap) {
		return p.Cap
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

func (p Policy) jitter() float64 {
	lo, hi := p.JitterLow, p.JitterHigh
	if lo <= 0 || hi <= lo {
		return 1
	}
	var u float64
	if p.Rand != nil {
		u = p.Rand.Float64()
	} else {
		u = rand.Float64() //nolint:gosec // jitter does not need crypto randomness
	}
	return lo + u*(hi-lo)
}

// Sleeper abstracts the actual wait so tests can substitute a recorder
// instead of real sleeps.
type Sleeper interface {
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
