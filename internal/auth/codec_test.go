package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)

	token, err := codec.Encode(Subject{ID: 1, Name: "alice"}, "issuerA")
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.SubjectID)
	assert.Equal(t, "alice", claims.SubjectName)
	assert.Equal(t, Purpose, claims.Purpose)
	assert.Equal(t, "issuerA", claims.IssuerTag)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{testAudience}, claims.Audience)
	assert.WithinDuration(t, clock.Now(), claims.IssuedAtTime(), 0)
	assert.WithinDuration(t, clock.Now().Add(TokenLifetime), claims.ExpiresAt.Time, 0)
}

func TestCodecEncodeRequiresSubject(t *testing.T) {
	codec := newTestCodec(newFakeClock())

	_, err := codec.Encode(Subject{}, "issuerA")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSubject)
	assert.Equal(t, FailureInvalidSubject, KindOf(err))
}

func TestCodecEncodeNameOnly(t *testing.T) {
	codec := newTestCodec(newFakeClock())

	token, err := codec.Encode(Subject{Name: "bob"}, "issuerA")
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Zero(t, claims.SubjectID)
	assert.Equal(t, "bob", claims.SubjectName)
}

func TestCodecEncodeIsDeterministicWithinASecond(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)

	first, err := codec.Encode(Subject{ID: 7}, "issuerA")
	require.NoError(t, err)
	clock.Advance(400 * time.Millisecond)
	second, err := codec.Encode(Subject{ID: 7}, "issuerA")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCodecDecodeFailures(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)
	valid, err := codec.Encode(Subject{ID: 1}, "issuerA")
	require.NoError(t, err)

	otherSecret := NewCodec(CodecConfig{Secret: "other-secret", Issuer: testIssuer, Audience: testAudience}, WithClock(clock.Now))
	forged, err := otherSecret.Encode(Subject{ID: 1}, "issuerA")
	require.NoError(t, err)

	otherAudience := NewCodec(CodecConfig{Secret: testSecret, Issuer: testIssuer, Audience: "billing"}, WithClock(clock.Now))
	otherIssuer := NewCodec(CodecConfig{Secret: testSecret, Issuer: "marketplace", Audience: testAudience}, WithClock(clock.Now))

	hs512 := signRaw(t, jwt.SigningMethodHS512, rawClaims(clock.Now(), TokenLifetime))

	wrongPurpose := rawClaims(clock.Now(), TokenLifetime)
	wrongPurpose.Purpose = "access"

	cases := []struct {
		name  string
		codec *Codec
		token string
		want  FailureKind
	}{
		{name: "garbage", codec: codec, token: "not-a-token", want: FailureMalformedToken},
		{name: "empty", codec: codec, token: "", want: FailureMalformedToken},
		{name: "foreign secret", codec: codec, token: forged, want: FailureBadSignature},
		{name: "unexpected algorithm", codec: codec, token: hs512, want: FailureBadSignature},
		{name: "audience mismatch", codec: otherAudience, token: valid, want: FailureAudienceMismatch},
		{name: "issuer mismatch", codec: otherIssuer, token: valid, want: FailureIssuerMismatch},
		{name: "wrong purpose", codec: codec, token: signRaw(t, jwt.SigningMethodHS256, wrongPurpose), want: FailureWrongPurpose},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := tc.codec.Decode(tc.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Equal(t, tc.want, KindOf(err), "err: %v", err)
		})
	}
}

func TestCodecDecodeExpiredEnvelope(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)

	token, err := codec.Encode(Subject{ID: 1}, "issuerA")
	require.NoError(t, err)

	clock.Advance(301 * time.Second)
	_, err = codec.Decode(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestCodecDecodeRequiresExpiry(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)

	claims := rawClaims(clock.Now(), TokenLifetime)
	claims.ExpiresAt = nil

	_, err := codec.Decode(signRaw(t, jwt.SigningMethodHS256, claims))
	require.Error(t, err)
	assert.Equal(t, FailureMalformedToken, KindOf(err))
}
