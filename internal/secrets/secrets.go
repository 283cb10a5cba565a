// Package secrets reads the service credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var ErrEmptySecret = errors.New("secret has no value")

// API is the subset of the Secrets Manager client the loader calls.
type API interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the JSON document stored in the secret.
// Empty fields leave the corresponding environment settings in place.
type Credentials struct {
	Table      string `json:"table"`
	SigningKey string `json:"sigkey"`
	Salt       string `json:"salt"`
}

// Loader fetches Credentials by secret id.
type Loader struct {
	client API
}

func NewLoader(client API) *Loader {
	return &Loader{client: client}
}

// NewClient returns a Secrets Manager client for cfg.
func NewClient(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg)
}

// Load reads the secret id, preferring the string value over the binary one.
func (l *Loader) Load(ctx context.Context, id string) (Credentials, error) {
	out, err := l.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to get secret %s: %w", id, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil && *out.SecretString != "":
		raw = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return Credentials{}, fmt.Errorf("secret %s: %w", id, ErrEmptySecret)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode secret %s: %w", id, err)
	}
	return creds, nil
}
