package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
)

// envNameReplacer maps a secret name to its environment variable form.
var envNameReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_")

// EnvStore resolves secrets from environment variables. A name is looked
// up verbatim first, then in upper snake case, so both POSTGRES_DSN and
// postgres-dsn address the same variable.
type EnvStore struct {
	logger arbor.ILogger
}

var _ interfaces.SecretStore = (*EnvStore)(nil)

func NewEnvStore(logger arbor.ILogger) *EnvStore {
	return &EnvStore{logger: logger}
}

func (s *EnvStore) Get(ctx context.Context, name string) (string, error) {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value, nil
	}
	upper := strings.ToUpper(envNameReplacer.Replace(name))
	if value, ok := os.LookupEnv(upper); ok && value != "" {
		return value, nil
	}
	return "", interfaces.ErrSecretNotFound
}
