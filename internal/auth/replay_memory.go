package auth

import (
	"container/heap"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const replayShardCount = 16

// MemoryReplayGuard is a process-local ReplayGuard. Tokens are spread over
// independently locked shards so unrelated tokens do not contend; each shard
// indexes its entries by expiry and only drops entries whose retention has elapsed.
type MemoryReplayGuard struct {
	shards [replayShardCount]*replayShard
	now    Clock
}

var _ ReplayGuard = (*MemoryReplayGuard)(nil)

type replayShard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	expiry  expiryHeap
}

// NewMemoryReplayGuard creates an empty guard. A nil clock uses time.Now.
func NewMemoryReplayGuard(now Clock) *MemoryReplayGuard {
	if now == nil {
		now = time.Now
	}
	g := &MemoryReplayGuard{now: now}
	for i := range g.shards {
		g.shards[i] = &replayShard{entries: make(map[string]time.Time)}
	}
	return g
}

func (g *MemoryReplayGuard) locate(token string) (*replayShard, string) {
	sum := sha256.Sum256([]byte(token))
	return g.shards[int(sum[0])%replayShardCount], hex.EncodeToString(sum[:])
}

// IsConsumed reports whether token was marked and its retention has not elapsed.
func (g *MemoryReplayGuard) IsConsumed(_ context.Context, token string) (bool, error) {
	shard, key := g.locate(token)
	now := g.now()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	until, ok := shard.entries[key]
	return ok && now.Before(until), nil
}

// MarkConsumed records token as spent until the given time.
func (g *MemoryReplayGuard) MarkConsumed(_ context.Context, token string, until time.Time) (bool, error) {
	shard, key := g.locate(token)
	now := g.now()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.evictLocked(now)

	if existing, ok := shard.entries[key]; ok {
		if until.After(existing) {
			shard.entries[key] = until
			heap.Push(&shard.expiry, expiryEntry{key: key, until: until})
		}
		return false, nil
	}
	shard.entries[key] = until
	heap.Push(&shard.expiry, expiryEntry{key: key, until: until})
	return true, nil
}

// EvictExpired drops every entry whose retention has elapsed.
func (g *MemoryReplayGuard) EvictExpired(_ context.Context) (int, error) {
	now := g.now()
	total := 0
	for _, shard := range g.shards {
		shard.mu.Lock()
		total += shard.evictLocked(now)
		shard.mu.Unlock()
	}
	return total, nil
}

// Len returns the number of tracked tokens.
func (g *MemoryReplayGuard) Len() int {
	total := 0
	for _, shard := range g.shards {
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

func (s *replayShard) evictLocked(now time.Time) int {
	evicted := 0
	for s.expiry.Len() > 0 && !now.Before(s.expiry[0].until) {
		entry := heap.Pop(&s.expiry).(expiryEntry)
		// A later MarkConsumed may have extended retention; only the newest
		// heap entry for a key removes it.
		if current, ok := s.entries[entry.key]; ok && current.Equal(entry.until) {
			delete(s.entries, entry.key)
			evicted++
		}
	}
	return evicted
}

type expiryEntry struct {
	key   string
	until time.Time
}

type expiryHeap []expiryEntry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].until.Before(h[j].until) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) {
	*h = append(*h, x.(expiryEntry))
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
