package secrets

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

// vaultMount is the KV v2 mount holding the application secrets.
const vaultMount = "secret"

// VaultStore resolves secrets from a Vault KV v2 mount. All values live
// in one secret at secret/data/{app_name}, keyed by name.
type VaultStore struct {
	client  *vault.Client
	appName string
	logger  arbor.ILogger
}

var _ interfaces.SecretStore = (*VaultStore)(nil)

// NewVaultStore builds the Vault client from config; VAULT_ADDR and
// VAULT_TOKEN env variables are honored through the config overrides.
func NewVaultStore(config common.SecretsConfig, logger arbor.ILogger) (*VaultStore, error) {
	vaultConfig := vault.DefaultConfig()
	if config.VaultAddr != "" {
		vaultConfig.Address = config.VaultAddr
	}
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if config.VaultToken != "" {
		client.SetToken(config.VaultToken)
	}
	return &VaultStore{
		client:  client,
		appName: config.AppName,
		logger:  logger,
	}, nil
}

func (s *VaultStore) Get(ctx context.Context, name string) (string, error) {
	secret, err := s.client.KVv2(vaultMount).Get(ctx, s.appName)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", interfaces.ErrSecretNotFound
		}
		return "", fmt.Errorf("vault secret %s: %w", name, err)
	}
	raw, ok := secret.Data[name]
	if !ok {
		return "", interfaces.ErrSecretNotFound
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", interfaces.ErrSecretNotFound
	}
	return value, nil
}
