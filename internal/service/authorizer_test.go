package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/regicide-accounts/internal/model"
	"github.com/dtroode/regicide-accounts/internal/testutil"
	"github.com/dtroode/regicide-accounts/internal/token"
)

const testMethodArn = "arn:aws:execute-api:us-east-1:123456789012:api/prod/POST/logout"

func buildToken(t *testing.T, key []byte, user string) string {
	t.Helper()
	tok, err := token.NewCodec(key).Build(model.AuthToken{
		UserID:     user,
		Issued:     time.Now(),
		Expiration: time.Now().Add(time.Hour),
		TokenID:    "token-id",
	})
	require.NoError(t, err)
	return tok
}

func TestAuthorizer_Allow(t *testing.T) {
	a := NewAuthorizer(token.NewCodec(testSigningKey), testutil.MakeNoopLogger())

	resp := a.Authorize(context.Background(), model.AuthorizerRequest{
		AuthorizationToken: buildToken(t, testSigningKey, "alice"),
		MethodArn:          testMethodArn,
	})

	assert.Equal(t, "API", resp.PrincipalID)
	assert.Equal(t, "2012-10-17", resp.PolicyDocument.Version)
	require.Len(t, resp.PolicyDocument.Statement, 1)
	st := resp.PolicyDocument.Statement[0]
	assert.Equal(t, model.EffectAllow, st.Effect)
	assert.Equal(t, []string{"execute-api:Invoke"}, st.Action)
	assert.Equal(t, []string{testMethodArn}, st.Resource)
	assert.Equal(t, model.AuthorizerContext{User: "alice", Path: testMethodArn, Permissions: "g"}, resp.Context)
}

func TestAuthorizer_Deny(t *testing.T) {
	a := NewAuthorizer(token.NewCodec(testSigningKey), testutil.MakeNoopLogger())

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"garbage", "not.a.token"},
		{"other key", buildToken(t, []byte(strings.Repeat("z", token.MinKeyLength)), "alice")},
		{"short user id", buildToken(t, testSigningKey, "al")},
		{"long user id", buildToken(t, testSigningKey, strings.Repeat("a", model.UsernameMaxLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.Authorize(context.Background(), model.AuthorizerRequest{
				AuthorizationToken: tt.token,
				MethodArn:          testMethodArn,
			})

			assert.Equal(t, "User", resp.PrincipalID)
			assert.Equal(t, model.EffectDeny, resp.PolicyDocument.Statement[0].Effect)
			assert.Equal(t, model.AuthorizerContext{User: "User", Path: testMethodArn}, resp.Context)
		})
	}
}

func TestAuthorizer_Decide(t *testing.T) {
	a := NewAuthorizer(token.NewCodec(testSigningKey), testutil.MakeNoopLogger())

	d := a.Decide(buildToken(t, testSigningKey, "alice"))
	assert.Equal(t, model.Decision{Allow: true, UserID: "alice", Permissions: model.PermissionGeneral}, d)

	assert.Equal(t, model.Decision{}, a.Decide("x.y.z"))
}
