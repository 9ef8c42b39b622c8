// Package auth holds the credential checks that gate mutating graph operations.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrUnauthorized is returned when a credential is missing or rejected.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier decides whether a bearer credential may perform a mutation.
type Verifier interface {
	Verify(ctx context.Context, credential string) error
}

// StaticSecret accepts exactly one shared secret.
type StaticSecret struct {
	secret []byte
}

// NewStaticSecret builds a verifier for the given secret. An empty secret is
// rejected, since it would make every empty credential valid.
func NewStaticSecret(secret string) (*StaticSecret, error) {
	if secret == "" {
		return nil, errors.New("auth: secret must not be empty")
	}
	return &StaticSecret{secret: []byte(secret)}, nil
}

// Verify accepts credential only when it equals the configured secret.
func (s *StaticSecret) Verify(_ context.Context, credential string) error {
	if credential == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(credential), s.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, credential string) error

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, credential string) error {
	return f(ctx, credential)
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is absent or uses another scheme.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
