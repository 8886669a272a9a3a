package seqflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateMutualExclusion(t *testing.T) {
	g := NewGate()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, g.Lock(context.Background())) {
				return
			}
			counter++
			g.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.False(t, g.Locked())
}

func TestGateTryLock(t *testing.T) {
	g := NewGate()
	require.True(t, g.TryLock())
	assert.True(t, g.Locked())
	assert.False(t, g.TryLock())
	g.Unlock()
	assert.True(t, g.TryLock())
	g.Unlock()
}

func TestGateLockCancelled(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.Lock(context.Background()))
	defer g.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Lock(ctx), context.DeadlineExceeded)
}

func TestGateLockPrefersFreeGate(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.Lock(ctx), "an uncontended gate is acquired even with a cancelled context")
	g.Unlock()
}

func TestGateUnlockUnheldPanics(t *testing.T) {
	assert.PanicsWithValue(t, "seqflow: Gate.Unlock of unlocked gate", func() {
		NewGate().Unlock()
	})
}
