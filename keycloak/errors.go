package keycloak

import (
	"errors"
	"fmt"
)

// Kind tags the verification step a token failed.
type Kind string

const (
	KindExpired          Kind = "expired"
	KindInvalidSignature Kind = "invalid-signature"
	KindMalformed        Kind = "malformed"
	KindMissingAudience  Kind = "missing-audience"
	KindUnknownKey       Kind = "unknown-key"
)

var (
	// ErrExpiredToken matches any failure of the exp, nbf or iat window checks
	ErrExpiredToken = &TokenError{Kind: KindExpired}

	// ErrInvalidSignature matches signature failures and algorithm mismatches
	ErrInvalidSignature = &TokenError{Kind: KindInvalidSignature}

	// ErrMalformedToken matches tokens that cannot be parsed
	ErrMalformedToken = &TokenError{Kind: KindMalformed}

	// ErrAudienceMismatch matches tokens whose aud claim lacks the required audience
	ErrAudienceMismatch = &TokenError{Kind: KindMissingAudience}

	// ErrUnknownSigningKey matches tokens whose kid cannot be resolved
	ErrUnknownSigningKey = &TokenError{Kind: KindUnknownKey}
)

var (
	// ErrJWKSFetchFailed is returned when the certs endpoint cannot be read
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

	// ErrEmptyKeySet is returned when a fetched JWKS holds no usable signing keys
	ErrEmptyKeySet = errors.New("JWKS contains no usable signing keys")

	// ErrKeyNotFound is returned when a kid is absent after a refetch
	ErrKeyNotFound = errors.New("signing key not found")
)

// TokenError is the single error type returned by Verifier.Verify.
// Kind is meant for logs and metrics; it must not be echoed to callers.
type TokenError struct {
	Kind Kind
	Err  error
}

func newTokenError(kind Kind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

// Error implements the error interface
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("token %s", e.Kind)
}

// Unwrap implements errors.Unwrap
func (e *TokenError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can use errors.Is(err, ErrExpiredToken).
func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the verification kind from err.
func KindOf(err error) (Kind, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
