package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReplayGuardMarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard := NewMemoryReplayGuard(clock.Now)
	until := clock.Now().Add(TokenLifetime)

	consumed, err := guard.IsConsumed(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, consumed)

	won, err := guard.MarkConsumed(ctx, "tok", until)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = guard.MarkConsumed(ctx, "tok", until)
	require.NoError(t, err)
	assert.False(t, won)

	consumed, err = guard.IsConsumed(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, 1, guard.Len())
}

func TestMemoryReplayGuardRetainsUntilLifetimeElapses(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard := NewMemoryReplayGuard(clock.Now)

	_, err := guard.MarkConsumed(ctx, "tok", clock.Now().Add(TokenLifetime))
	require.NoError(t, err)

	clock.Advance(TokenLifetime - time.Second)
	evicted, err := guard.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, evicted)
	consumed, _ := guard.IsConsumed(ctx, "tok")
	assert.True(t, consumed)

	clock.Advance(time.Second)
	evicted, err = guard.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Zero(t, guard.Len())
}

func TestMemoryReplayGuardDoesNotEvictUnderPressure(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard := NewMemoryReplayGuard(clock.Now)
	until := clock.Now().Add(TokenLifetime)

	const n = 20000
	for i := 0; i < n; i++ {
		_, err := guard.MarkConsumed(ctx, fmt.Sprintf("tok-%d", i), until)
		require.NoError(t, err)
	}
	assert.Equal(t, n, guard.Len())

	consumed, err := guard.IsConsumed(ctx, "tok-0")
	require.NoError(t, err)
	assert.True(t, consumed, "oldest entry must survive while within its lifetime")
}

func TestMemoryReplayGuardLazyEvictionOnInsert(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard := NewMemoryReplayGuard(clock.Now)

	for i := 0; i < 64; i++ {
		_, err := guard.MarkConsumed(ctx, fmt.Sprintf("old-%d", i), clock.Now().Add(time.Minute))
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Minute)

	for i := 0; i < 64; i++ {
		_, err := guard.MarkConsumed(ctx, fmt.Sprintf("new-%d", i), clock.Now().Add(time.Minute))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, guard.Len(), 128)
	consumed, _ := guard.IsConsumed(ctx, "old-0")
	assert.False(t, consumed)
}

func TestMemoryReplayGuardExtendedRetentionSurvivesStaleHeapEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard := NewMemoryReplayGuard(clock.Now)

	_, err := guard.MarkConsumed(ctx, "tok", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = guard.MarkConsumed(ctx, "tok", clock.Now().Add(3*time.Minute))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = guard.EvictExpired(ctx)
	require.NoError(t, err)

	consumed, _ := guard.IsConsumed(ctx, "tok")
	assert.True(t, consumed)
}

func TestMemoryReplayGuardConcurrentMarkSingleWinner(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryReplayGuard(nil)
	until := time.Now().Add(TokenLifetime)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := guard.MarkConsumed(ctx, "same-token", until)
			if err == nil && won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
