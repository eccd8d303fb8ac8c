package auth

import (
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "shared-test-secret"
	testIssuer   = "storefront"
	testAudience = "order-tagger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCodec(clock *fakeClock) *Codec {
	return NewCodec(CodecConfig{Secret: testSecret, Issuer: testIssuer, Audience: testAudience}, WithClock(clock.Now))
}

// signRaw signs arbitrary claims with the test secret, bypassing Encode's checks.
func signRaw(t *testing.T, method jwt.SigningMethod, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func rawClaims(issuedAt time.Time, lifetime time.Duration) *Claims {
	return &Claims{
		SubjectID: 1,
		Purpose:   Purpose,
		IssuerTag: "issuerA",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	}
}
