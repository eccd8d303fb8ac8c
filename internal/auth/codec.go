package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// Purpose marks a credential as a cross-application login assertion.
	Purpose = "auto-login"
	// TokenLifetime is the fixed validity window of an auto-login credential.
	TokenLifetime = 5 * time.Minute
	// MaxClockSkew bounds how far in the future an issued-at may lie.
	MaxClockSkew = 30 * time.Second
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Subject identifies the account a credential asserts. A zero ID or empty
// Name means that half is absent; at least one must be set.
type Subject struct {
	ID   int64
	Name string
}

// Present reports whether the subject carries any identifier.
func (s Subject) Present() bool {
	return s.ID != 0 || s.Name != ""
}

// Claims describes the auto-login JWT payload.
type Claims struct {
	SubjectID   int64  `json:"sub_id,omitempty"`
	SubjectName string `json:"sub_name,omitempty"`
	Purpose     string `json:"purpose"`
	IssuerTag   string `json:"issuer_tag"`
	jwt.RegisteredClaims
}

// Identity returns the subject asserted by the claims.
func (c *Claims) Identity() Subject {
	return Subject{ID: c.SubjectID, Name: c.SubjectName}
}

// IssuedAtTime returns iat, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// CodecConfig holds the shared secret and the envelope metadata both sides agree on.
type CodecConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Codec encodes and decodes auto-login credentials over a shared HMAC secret.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	now      Clock
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source.
func WithClock(now Clock) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a codec.
func NewCodec(cfg CodecConfig, opts ...CodecOption) *Codec {
	c := &Codec{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode mints a signed credential for subject on behalf of issuerTag.
func (c *Codec) Encode(subject Subject, issuerTag string) (string, error) {
	if !subject.Present() {
		return "", ErrInvalidSubject
	}

	issuedAt := jwt.NewNumericDate(c.now())
	claims := &Claims{
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		Purpose:     Purpose,
		IssuerTag:   issuerTag,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  issuedAt,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies the envelope of tokenStr and returns its claims. Replay and
// recomputed freshness are left to the Verifier.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, newCredentialError(FailureMalformedToken, errors.New("invalid token claims"))
	}
	if claims.Purpose != Purpose {
		return nil, newCredentialError(FailureWrongPurpose, errors.New("unexpected purpose "+claims.Purpose))
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newCredentialError(FailureMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newCredentialError(FailureBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return newCredentialError(FailureExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newCredentialError(FailureAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newCredentialError(FailureIssuerMismatch, err)
	default:
		return newCredentialError(FailureMalformedToken, err)
	}
}
