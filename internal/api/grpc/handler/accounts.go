package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// SessionService defines login, registration, logout and verify operations.
type SessionService interface {
	Login(ctx context.Context, req model.LoginRequest) model.LoginResponse
	Register(ctx context.Context, req model.RegisterRequest) model.RegisterResponse
	Logout(ctx context.Context, req model.LogoutRequest) model.LogoutResponse
	Verify(ctx context.Context, req model.VerifyRequest) model.VerifyResponse
}

// Authorizer builds gateway policies for session tokens.
type Authorizer interface {
	Authorize(ctx context.Context, req model.AuthorizerRequest) model.AuthorizerResponse
}

// TokenParser reads a token without verifying it.
type TokenParser interface {
	Parse(token string) (model.AuthToken, error)
}

var _ AccountsServer = (*Accounts)(nil)

// Accounts handles gRPC endpoints of the accounts service.
type Accounts struct {
	sessions       SessionService
	authorizer     Authorizer
	tokens         TokenParser
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAccounts creates a new Accounts handler.
func NewAccounts(
	sessions SessionService,
	authorizer Authorizer,
	tokens TokenParser,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Accounts {
	return &Accounts{
		sessions:       sessions,
		authorizer:     authorizer,
		tokens:         tokens,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Login authenticates a user and returns the account with a fresh token.
func (h *Accounts) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, handleError(err)
	}

	h.logger.Debug("Accounts handler: processing login request",
		"username", req.Username)

	resp := h.sessions.Login(ctx, *req)

	h.logger.Info("Accounts handler: login completed",
		"username", req.Username,
		"result", resp.Result)

	return &resp, nil
}

// Register creates an account from the default template.
func (h *Accounts) Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, handleError(err)
	}

	h.logger.Debug("Accounts handler: processing registration request",
		"username", req.Username)

	resp := h.sessions.Register(ctx, *req)

	h.logger.Info("Accounts handler: registration completed",
		"username", req.Username,
		"result", resp.Result)

	return &resp, nil
}

// Logout revokes the body token. The caller must be authorized as the token owner.
func (h *Accounts) Logout(ctx context.Context, req *model.LogoutRequest) (*model.LogoutResponse, error) {
	principal, ok := h.contextManager.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, handleError(model.ErrInvalidToken)
	}

	if tok, err := h.tokens.Parse(req.AuthToken); err == nil &&
		model.NormalizeUsername(tok.UserID) != model.NormalizeUsername(principal.UserID) {
		h.logger.Warn("Accounts handler: logout of another user's token rejected",
			"principal", principal.UserID,
			"token_user", tok.UserID)
		return nil, status.Error(codes.PermissionDenied, "token belongs to another user")
	}

	resp := h.sessions.Logout(ctx, *req)

	h.logger.Info("Accounts handler: logout completed",
		"user", principal.UserID,
		"result", resp.Result)

	return &resp, nil
}

// Verify reports whether the token is the current token of its user.
func (h *Accounts) Verify(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, handleError(err)
	}

	resp := h.sessions.Verify(ctx, *req)
	return &resp, nil
}

// Authorize returns the gateway policy for the token.
func (h *Accounts) Authorize(ctx context.Context, req *model.AuthorizerRequest) (*model.AuthorizerResponse, error) {
	resp := h.authorizer.Authorize(ctx, *req)

	h.logger.Debug("Accounts handler: authorization decided",
		"principal", resp.PrincipalID,
		"resource", req.MethodArn)

	return &resp, nil
}
