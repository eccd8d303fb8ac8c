package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-tagger/internal/auth"
)

// pgQuerier is the subset of pgxpool.Pool the token repository uses.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConsumedTokenRepository records spent auto-login credentials in postgres,
// keyed by fingerprint. It is a replay guard shared by every instance that
// uses the same database.
type ConsumedTokenRepository struct {
	db  pgQuerier
	now func() time.Time
}

var _ auth.ReplayGuard = (*ConsumedTokenRepository)(nil)

// NewConsumedTokenRepository constructs repository. A nil clock uses time.Now.
func NewConsumedTokenRepository(pool *pgxpool.Pool, now func() time.Time) *ConsumedTokenRepository {
	return newConsumedTokenRepository(pool, now)
}

func newConsumedTokenRepository(db pgQuerier, now func() time.Time) *ConsumedTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &ConsumedTokenRepository{db: db, now: now}
}

func (r *ConsumedTokenRepository) IsConsumed(ctx context.Context, token string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM consumed_tokens WHERE fingerprint=$1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, auth.Fingerprint(token)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkConsumed relies on the primary key: of concurrent inserts for the same
// fingerprint exactly one affects a row.
func (r *ConsumedTokenRepository) MarkConsumed(ctx context.Context, token string, until time.Time) (bool, error) {
	const query = `
        INSERT INTO consumed_tokens (fingerprint, retain_until)
        VALUES ($1, $2)
        ON CONFLICT (fingerprint) DO NOTHING`
	tag, err := r.db.Exec(ctx, query, auth.Fingerprint(token), until.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ConsumedTokenRepository) EvictExpired(ctx context.Context) (int, error) {
	const query = `
        DELETE FROM consumed_tokens WHERE retain_until < $1`
	tag, err := r.db.Exec(ctx, query, r.now().UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
