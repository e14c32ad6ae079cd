package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the part of the Secrets Manager client used to read credentials.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient loads the default AWS configuration (environment, shared files, instance role).
func NewSecretsClient(ctx context.Context) (*secretsmanager.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// SecretValue reads a plain string secret.
func SecretValue(ctx context.Context, secrets SecretGetter, id string) (string, error) {
	secret, err := secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", id, err)
	}
	if secret.SecretString == nil || *secret.SecretString == "" {
		return "", fmt.Errorf("secret %s has no string value", id)
	}
	return *secret.SecretString, nil
}

// DefaultSecrets returns a SecretGetter that only loads the AWS configuration the first time a
// secret is actually needed.
func DefaultSecrets() SecretGetter {
	return &lazySecrets{}
}

type lazySecrets struct {
	once   sync.Once
	client *secretsmanager.Client
	err    error
}

func (l *lazySecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	l.once.Do(func() {
		l.client, l.err = NewSecretsClient(ctx)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.client.GetSecretValue(ctx, params, optFns...)
}
