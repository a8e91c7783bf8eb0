// SPDX-License-Identifier: MIT

package backoff

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		Initial:    100 * time.Millisecond,
		Factor:     1.5,
		Cap:        2 * time.Second,
		JitterLow:  0.8,
		JitterHigh: 1.2,
		Rand:       rand.New(rand.NewSource(1)), //nolint:gosec // deterministic test source
	}

	prevCeiling := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := p.Delay(attempt)
		// Jitter bounds around the undamped exponential value.
		base := float64(p.Initial)
		for i := 0; i < attempt; i++ {
			base *= p.Factor
		}
		lo := time.Duration(base * p.JitterLow)
		hi := time.Duration(base * p.JitterHigh)
		if lo > p.Cap {
			lo = p.Cap
		}
		if hi > p.Cap {
			hi = p.Cap
		}
		assert.GreaterOrEqual(t, d, lo, "attempt %d below jitter floor", attempt)
		assert.LessOrEqual(t, d, hi, "attempt %d above jitter ceiling", attempt)
		assert.LessOrEqual(t, d, p.Cap, "attempt %d exceeds cap", attempt)
		if prevCeiling < hi {
			prevCeiling = hi
		}
	}
	// Deep attempts must have converged onto the cap.
	assert.Equal(t, p.Cap, p.Delay(50))
}

func TestDelayDeterministicWithSeededSource(t *testing.T) {
	a := Default()
	a.Rand = rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test source
	b := Default()
	b.Rand = rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test source

	for attempt := 0; attempt < 10; attempt++ {
		require.Equal(t, a.Delay(attempt), b.Delay(attempt))
	}
}

func TestDelayNegativeAttemptClamped(t *testing.T) {
	p := Default()
	d := p.Delay(-3)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, p.Cap)
}

func TestRealSleeperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealSleeper{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRealSleeperZeroDelay(t *testing.T) {
	require.NoError(t, RealSleeper{}.Sleep(context.Background(), 0))
}
