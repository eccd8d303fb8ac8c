package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Verifier runs the ordered credential checks: replay, envelope, subject,
// then freshness recomputed from issued-at.
type Verifier struct {
	codec *Codec
	guard ReplayGuard
	now   Clock
}

// NewVerifier wires a verifier. A nil clock uses time.Now.
func NewVerifier(codec *Codec, guard ReplayGuard, now Clock) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{codec: codec, guard: guard, now: now}
}

// Verify checks token without consuming it. Credential rejections are
// *CredentialError values; any other error is an infrastructure failure.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	consumed, err := v.guard.IsConsumed(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay guard lookup: %w", err)
	}
	if consumed {
		return nil, ErrAlreadyUsed
	}

	claims, err := v.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	if !claims.Identity().Present() {
		return nil, ErrInvalidSubject
	}

	issuedAt := claims.IssuedAtTime()
	if issuedAt.IsZero() {
		return nil, newCredentialError(FailureMalformedToken, errors.New("missing issued-at"))
	}
	age := v.now().Sub(issuedAt)
	if age > TokenLifetime {
		return nil, newCredentialError(FailureExpired, fmt.Errorf("issued %s ago", age.Truncate(time.Second)))
	}
	if age < -MaxClockSkew {
		return nil, newCredentialError(FailureExpired, errors.New("issued-at lies in the future"))
	}
	return claims, nil
}

// Consume marks a verified token as spent. It returns ErrAlreadyUsed when a
// concurrent caller consumed the same token first.
func (v *Verifier) Consume(ctx context.Context, token string, claims *Claims) error {
	won, err := v.guard.MarkConsumed(ctx, token, RetainUntil(claims))
	if err != nil {
		return fmt.Errorf("replay guard mark: %w", err)
	}
	if !won {
		return ErrAlreadyUsed
	}
	return nil
}

// Redeem verifies and consumes token in one step.
func (v *Verifier) Redeem(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := v.Consume(ctx, token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// RetainUntil is the earliest time a consumed token may be forgotten: past it
// the freshness check rejects the token on its own.
func RetainUntil(claims *Claims) time.Time {
	return claims.IssuedAtTime().Add(TokenLifetime + MaxClockSkew)
}
