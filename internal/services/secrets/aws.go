package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
)

// AWSStore resolves secrets from AWS Secrets Manager. Secrets live under
// {app_name}/{name}, one secret per value.
type AWSStore struct {
	client  *secretsmanager.Client
	appName string
	logger  arbor.ILogger
}

var _ interfaces.SecretStore = (*AWSStore)(nil)

// NewAWSStore loads the default AWS config chain (env, shared config,
// instance role) and builds the Secrets Manager client.
func NewAWSStore(ctx context.Context, appName string, logger arbor.ILogger) (*AWSStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSStore{
		client:  secretsmanager.NewFromConfig(awsCfg),
		appName: appName,
		logger:  logger,
	}, nil
}

func (s *AWSStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID(s.appName, name)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", interfaces.ErrSecretNotFound
		}
		return "", fmt.Errorf("aws secret %s: %w", name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", interfaces.ErrSecretNotFound
	}
	return *out.SecretString, nil
}

// secretID builds the Secrets Manager identifier for a named secret.
func secretID(appName, name string) string {
	if appName == "" {
		return name
	}
	return appName + "/" + name
}
