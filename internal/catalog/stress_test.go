// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Many goroutines hammer one shared database file, each operation taking a
// fresh locked session. Every write must land: the sidecar lock serializes
// access and the busy retries absorb whatever slips through.
func TestConcurrentWritersAgainstOneFile(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test")
	}

	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)

	const workers = 6
	const opsPerWorker = 20

	var created atomic.Int64
	var failures atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				_, err := s.CreateElement(ctx, NewElement{
					ListID: listID,
					Name:   fmt.Sprintf("w%d_e%03d", w, i),
					Type:   Element2D,
				})
				if err != nil {
					failures.Add(1)
					continue
				}
				created.Add(1)

				// Interleave reads so writers contend with readers too.
				if i%5 == 0 {
					if _, err := s.CountElements(ctx, listID, true); err != nil {
						failures.Add(1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, failures.Load(), "no operation may fail under contention")

	n, err := s.CountElements(ctx, listID, true)
	require.NoError(t, err)
	assert.Equal(t, int(created.Load()), n, "every reported success is durable")
}
