package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/domain"
	"github.com/spec-kit/order-tagger/internal/observability"
	"github.com/spec-kit/order-tagger/internal/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSweepOnceEvictsOnlyElapsedEntries(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	guard := auth.NewMemoryReplayGuard(clk.Now)
	store := session.NewMemoryStore(clk.Now)
	manager := session.NewManager(store, 10*time.Minute, clk.Now)
	metrics := observability.NewMetrics()

	_, err := guard.MarkConsumed(ctx, "early", clk.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = guard.MarkConsumed(ctx, "late", clk.Now().Add(time.Hour))
	require.NoError(t, err)

	sess, err := manager.New(&domain.User{ID: 1, Username: "alice"}, true)
	require.NoError(t, err)
	require.NoError(t, manager.Persist(ctx, sess))

	sweeper := NewSweeper(guard, store, time.Minute, metrics, nil)

	clk.Advance(2 * time.Minute)
	sweeper.SweepOnce(ctx)
	assert.Equal(t, 1, guard.Len())
	assert.Equal(t, 1, store.Len())

	consumed, err := guard.IsConsumed(ctx, "late")
	require.NoError(t, err)
	assert.True(t, consumed)

	clk.Advance(time.Hour)
	sweeper.SweepOnce(ctx)
	assert.Zero(t, guard.Len())
	assert.Zero(t, store.Len())

	m := &dto.Metric{}
	require.NoError(t, metrics.ReplayEvictionsTotal.Write(m))
	assert.Equal(t, float64(2), m.GetCounter().GetValue())
}

func TestRunStopsOnCancel(t *testing.T) {
	guard := auth.NewMemoryReplayGuard(nil)
	sweeper := NewSweeper(guard, nil, 5*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
