package auth

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a credential was rejected. The set is closed;
// callers switch on it rather than on error strings.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureInvalidSubject
	FailureMalformedToken
	FailureBadSignature
	FailureExpired
	FailureAudienceMismatch
	FailureIssuerMismatch
	FailureWrongPurpose
	FailureAlreadyUsed
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidSubject:
		return "invalid_subject"
	case FailureMalformedToken:
		return "malformed_token"
	case FailureBadSignature:
		return "bad_signature"
	case FailureExpired:
		return "expired"
	case FailureAudienceMismatch:
		return "audience_mismatch"
	case FailureIssuerMismatch:
		return "issuer_mismatch"
	case FailureWrongPurpose:
		return "wrong_purpose"
	case FailureAlreadyUsed:
		return "already_used"
	default:
		return "unknown"
	}
}

// CredentialError reports a rejected credential together with the underlying cause.
type CredentialError struct {
	Kind FailureKind
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential rejected (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("credential rejected (%s)", e.Kind)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Is matches another *CredentialError of the same kind, so sentinel values
// like ErrAlreadyUsed work with errors.Is.
func (e *CredentialError) Is(target error) bool {
	t, ok := target.(*CredentialError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidSubject   = &CredentialError{Kind: FailureInvalidSubject}
	ErrMalformedToken   = &CredentialError{Kind: FailureMalformedToken}
	ErrBadSignature     = &CredentialError{Kind: FailureBadSignature}
	ErrExpired          = &CredentialError{Kind: FailureExpired}
	ErrAudienceMismatch = &CredentialError{Kind: FailureAudienceMismatch}
	ErrIssuerMismatch   = &CredentialError{Kind: FailureIssuerMismatch}
	ErrWrongPurpose     = &CredentialError{Kind: FailureWrongPurpose}
	ErrAlreadyUsed      = &CredentialError{Kind: FailureAlreadyUsed}
)

func newCredentialError(kind FailureKind, err error) error {
	return &CredentialError{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, or FailureUnknown.
func KindOf(err error) FailureKind {
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return credErr.Kind
	}
	return FailureUnknown
}
