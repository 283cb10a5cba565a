package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcctx "github.com/dtroode/regicide-accounts/internal/api/grpc/context"
	"github.com/dtroode/regicide-accounts/internal/mocks"
	"github.com/dtroode/regicide-accounts/internal/model"
	"github.com/dtroode/regicide-accounts/internal/testutil"
)

type handlerDeps struct {
	sessions   *mocks.SessionService
	authorizer *mocks.Authorizer
	tokens     *mocks.TokenCodec
	handler    *Accounts
}

func newHandler(t *testing.T) handlerDeps {
	t.Helper()
	d := handlerDeps{
		sessions:   mocks.NewSessionService(t),
		authorizer: mocks.NewAuthorizer(t),
		tokens:     mocks.NewTokenCodec(t),
	}
	d.handler = NewAccounts(d.sessions, d.authorizer, d.tokens, grpcctx.NewManager(), testutil.MakeNoopLogger())
	return d
}

func withPrincipal(user string) context.Context {
	return grpcctx.NewManager().SetPrincipalToContext(context.Background(), model.Principal{UserID: user, Permissions: "g"})
}

func TestAccounts_Login(t *testing.T) {
	d := newHandler(t)
	req := model.LoginRequest{Username: "alice", PassHash: "hash"}
	want := model.LoginResponse{Result: model.LoginSuccess, AuthToken: "a.b.c", Account: &model.Account{}}
	d.sessions.On("Login", mock.Anything, req).Return(want)

	resp, err := d.handler.Login(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, want, *resp)
}

func TestAccounts_Login_CanceledContext(t *testing.T) {
	d := newHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.handler.Login(ctx, &model.LoginRequest{})
	assert.Equal(t, codes.Canceled, status.Code(err))
	d.sessions.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestAccounts_Register(t *testing.T) {
	d := newHandler(t)
	req := model.RegisterRequest{Username: "alice", PassHash: "hash", DispName: "Alice W", Email: "a@b.c"}
	d.sessions.On("Register", mock.Anything, req).Return(model.RegisterResponse{Result: model.RegisterEmailExists})

	resp, err := d.handler.Register(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, model.RegisterEmailExists, resp.Result)
}

func TestAccounts_Verify(t *testing.T) {
	d := newHandler(t)
	d.sessions.On("Verify", mock.Anything, model.VerifyRequest{AuthToken: "t"}).Return(model.VerifyResponse{Result: true})

	resp, err := d.handler.Verify(context.Background(), &model.VerifyRequest{AuthToken: "t"})
	require.NoError(t, err)
	assert.True(t, resp.Result)
}

func TestAccounts_Authorize(t *testing.T) {
	d := newHandler(t)
	req := model.AuthorizerRequest{AuthorizationToken: "t", MethodArn: "arn"}
	d.authorizer.On("Authorize", mock.Anything, req).Return(model.AuthorizerResponse{PrincipalID: "API"})

	resp, err := d.handler.Authorize(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "API", resp.PrincipalID)
}

func TestAccounts_Logout(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		d := newHandler(t)
		req := model.LogoutRequest{AuthToken: "tok"}
		d.tokens.On("Parse", "tok").Return(model.AuthToken{UserID: "alice", TokenID: "id"}, nil)
		d.sessions.On("Logout", mock.Anything, req).Return(model.LogoutResponse{Result: model.LogoutSuccess})

		resp, err := d.handler.Logout(withPrincipal("Alice"), &req)
		require.NoError(t, err)
		assert.Equal(t, model.LogoutSuccess, resp.Result)
	})

	t.Run("another user's token", func(t *testing.T) {
		d := newHandler(t)
		d.tokens.On("Parse", "tok").Return(model.AuthToken{UserID: "bobby", TokenID: "id"}, nil)

		_, err := d.handler.Logout(withPrincipal("alice"), &model.LogoutRequest{AuthToken: "tok"})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		d.sessions.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})

	t.Run("unreadable token reaches the session", func(t *testing.T) {
		d := newHandler(t)
		req := model.LogoutRequest{AuthToken: "garbage"}
		d.tokens.On("Parse", "garbage").Return(model.AuthToken{}, errors.New("malformed"))
		d.sessions.On("Logout", mock.Anything, req).Return(model.LogoutResponse{Result: model.LogoutInvalidToken})

		resp, err := d.handler.Logout(withPrincipal("alice"), &req)
		require.NoError(t, err)
		assert.Equal(t, model.LogoutInvalidToken, resp.Result)
	})

	t.Run("no principal", func(t *testing.T) {
		d := newHandler(t)

		_, err := d.handler.Logout(context.Background(), &model.LogoutRequest{AuthToken: "tok"})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}
