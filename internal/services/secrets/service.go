// Package secrets resolves named secrets from the configured backend.
// Three backends are supported: plain environment variables, AWS Secrets
// Manager and Vault KV v2. The environment is always consulted when the
// primary backend has no value, so a partially migrated deployment keeps
// working.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

// NewStore builds the secret store selected by config.Backend (or the
// SECRET_BACKEND env override applied during config loading).
func NewStore(ctx context.Context, config common.SecretsConfig, logger arbor.ILogger) (interfaces.SecretStore, error) {
	switch strings.ToLower(config.Backend) {
	case "", "env":
		return NewEnvStore(logger), nil
	case "aws":
		store, err := NewAWSStore(ctx, config.AppName, logger)
		if err != nil {
			return nil, err
		}
		return withEnvFallback(store, logger), nil
	case "vault":
		store, err := NewVaultStore(config, logger)
		if err != nil {
			return nil, err
		}
		return withEnvFallback(store, logger), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", config.Backend)
	}
}

// fallbackStore consults the environment when the primary backend reports
// a miss. Hard backend errors propagate unchanged.
type fallbackStore struct {
	primary interfaces.SecretStore
	env     *EnvStore
}

func withEnvFallback(primary interfaces.SecretStore, logger arbor.ILogger) interfaces.SecretStore {
	return &fallbackStore{primary: primary, env: NewEnvStore(logger)}
}

func (s *fallbackStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.primary.Get(ctx, name)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, interfaces.ErrSecretNotFound) {
		return s.env.Get(ctx, name)
	}
	return "", err
}
