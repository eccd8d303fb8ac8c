package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReplayKeyPrefix = "autologin:consumed:"

// RedisReplayGuard shares consumed-token state between verifier instances.
// SET NX makes the unconsumed-to-consumed transition atomic across processes
// and the key TTL replaces explicit eviction.
type RedisReplayGuard struct {
	client redis.Cmdable
	prefix string
	now    Clock
}

var _ ReplayGuard = (*RedisReplayGuard)(nil)

// NewRedisReplayGuard builds a guard on top of client.
func NewRedisReplayGuard(client redis.Cmdable, now Clock) *RedisReplayGuard {
	if now == nil {
		now = time.Now
	}
	return &RedisReplayGuard{client: client, prefix: defaultReplayKeyPrefix, now: now}
}

func (g *RedisReplayGuard) key(token string) string {
	return g.prefix + Fingerprint(token)
}

func (g *RedisReplayGuard) IsConsumed(ctx context.Context, token string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisReplayGuard) MarkConsumed(ctx context.Context, token string, until time.Time) (bool, error) {
	ttl := until.Sub(g.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return g.client.SetNX(ctx, g.key(token), 1, ttl).Result()
}

// EvictExpired is a no-op; redis expires keys on its own.
func (g *RedisReplayGuard) EvictExpired(context.Context) (int, error) {
	return 0, nil
}
