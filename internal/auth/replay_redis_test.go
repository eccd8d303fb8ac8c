package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T, clock *fakeClock) (*RedisReplayGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisReplayGuard(client, clock.Now), mr
}

func TestRedisReplayGuardMarkAndExpire(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard, mr := newRedisGuard(t, clock)

	won, err := guard.MarkConsumed(ctx, "tok", clock.Now().Add(TokenLifetime))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = guard.MarkConsumed(ctx, "tok", clock.Now().Add(TokenLifetime))
	require.NoError(t, err)
	assert.False(t, won)

	consumed, err := guard.IsConsumed(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.True(t, mr.Exists(defaultReplayKeyPrefix+Fingerprint("tok")))

	mr.FastForward(TokenLifetime - time.Second)
	consumed, err = guard.IsConsumed(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, consumed)

	mr.FastForward(2 * time.Second)
	consumed, err = guard.IsConsumed(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, consumed)

	evicted, err := guard.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, evicted)
}

func TestRedisReplayGuardConcurrentMarkSingleWinner(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard, _ := newRedisGuard(t, clock)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := guard.MarkConsumed(ctx, "same-token", clock.Now().Add(TokenLifetime))
			if err == nil && won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisReplayGuardUnavailable(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	guard, mr := newRedisGuard(t, clock)
	mr.Close()

	_, err := guard.IsConsumed(ctx, "tok")
	assert.Error(t, err)
}
