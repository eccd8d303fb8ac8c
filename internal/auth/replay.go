package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ReplayGuard remembers which credentials have been spent.
//
// MarkConsumed reports whether this call moved the token from unconsumed to
// consumed; for any token at most one caller observes true. Entries must be
// retained at least until the supplied time.
type ReplayGuard interface {
	IsConsumed(ctx context.Context, token string) (bool, error)
	MarkConsumed(ctx context.Context, token string, until time.Time) (bool, error)
	EvictExpired(ctx context.Context) (int, error)
}

// Fingerprint returns the key a guard stores for token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
