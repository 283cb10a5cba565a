package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	out    *secretsmanager.GetSecretValueOutput
	err    error
	lastID string
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.lastID = aws.ToString(in.SecretId)
	return f.out, f.err
}

const secretJSON = `{"table":"regicide-accounts","sigkey":"signing-key","salt":"password-salt"}`

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	want := Credentials{Table: "regicide-accounts", SigningKey: "signing-key", Salt: "password-salt"}

	t.Run("string value", func(t *testing.T) {
		api := &fakeAPI{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String(secretJSON)}}
		creds, err := NewLoader(api).Load(ctx, "api/salt")
		require.NoError(t, err)
		assert.Equal(t, want, creds)
		assert.Equal(t, "api/salt", api.lastID)
	})

	t.Run("binary value", func(t *testing.T) {
		api := &fakeAPI{out: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte(secretJSON)}}
		creds, err := NewLoader(api).Load(ctx, "api/salt")
		require.NoError(t, err)
		assert.Equal(t, want, creds)
	})

	t.Run("empty", func(t *testing.T) {
		api := &fakeAPI{out: &secretsmanager.GetSecretValueOutput{}}
		_, err := NewLoader(api).Load(ctx, "api/salt")
		assert.ErrorIs(t, err, ErrEmptySecret)
	})

	t.Run("not json", func(t *testing.T) {
		api := &fakeAPI{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain")}}
		_, err := NewLoader(api).Load(ctx, "api/salt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode secret")
	})

	t.Run("client error", func(t *testing.T) {
		api := &fakeAPI{err: errors.New("access denied")}
		_, err := NewLoader(api).Load(ctx, "api/salt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}
