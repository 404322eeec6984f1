package interfaces

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when a backend has no value for the name.
// Callers fall back to defaults rather than failing.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves named secrets from the configured backend
// (env, aws, vault). The env backend is always the fallback.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}
