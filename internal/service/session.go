package service

import (
	"context"
	"errors"
	"time"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// DefaultTokenTTL is the lifetime written into issued tokens.
const DefaultTokenTTL = 365 * 24 * time.Hour

// Session turns account store outcomes into login, registration, logout and verify responses.
type Session struct {
	accounts model.AccountStore
	codec    model.TokenCodec
	template model.Account
	tokenTTL time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// NewSession creates a Session. template seeds every registered account.
func NewSession(
	accounts model.AccountStore,
	codec model.TokenCodec,
	template model.Account,
	tokenTTL time.Duration,
	logger *logger.Logger,
) *Session {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Session{
		accounts: accounts,
		codec:    codec,
		template: template,
		tokenTTL: tokenTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Login authenticates the user, rotates the session token and returns the account.
func (s *Session) Login(ctx context.Context, req model.LoginRequest) model.LoginResponse {
	if err := ValidateLogin(req); err != nil {
		s.logger.Debug("Session: malformed login request",
			"error", err.Error())
		return model.LoginResponse{Result: model.LoginBadRequest}
	}

	user := model.NormalizeUsername(req.Username)

	tokenID, err := s.codec.GenerateTokenID()
	if err != nil {
		s.logger.Error("Session: failed to generate token id",
			"user", user,
			"error", err.Error())
		return model.LoginResponse{Result: model.LoginDatabaseError}
	}

	account, err := s.accounts.Login(ctx, req.Username, req.PassHash, tokenID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidRequest):
			return model.LoginResponse{Result: model.LoginBadRequest}
		case errors.Is(err, model.ErrInvalidCredentials):
			return model.LoginResponse{Result: model.LoginInvalidCredentials}
		default:
			s.logger.Error("Session: login failed",
				"user", user,
				"error", err.Error())
			return model.LoginResponse{Result: model.LoginDatabaseError}
		}
	}

	token, err := s.issue(user, tokenID)
	if err != nil {
		s.logger.Error("Session: failed to build token",
			"user", user,
			"error", err.Error())
		return model.LoginResponse{Result: model.LoginDatabaseError}
	}

	return model.LoginResponse{
		Result:    model.LoginSuccess,
		Account:   &account,
		AuthToken: token,
	}
}

// Register creates an account seeded from the template and returns it with a token.
func (s *Session) Register(ctx context.Context, req model.RegisterRequest) model.RegisterResponse {
	if err := ValidateRegistration(req); err != nil {
		s.logger.Debug("Session: invalid registration request",
			"error", err.Error())
		return model.RegisterResponse{Result: registerResult(err)}
	}

	user := model.NormalizeUsername(req.Username)

	tokenID, err := s.codec.GenerateTokenID()
	if err != nil {
		s.logger.Error("Session: failed to generate token id",
			"user", user,
			"error", err.Error())
		return model.RegisterResponse{Result: model.RegisterError}
	}

	// The token is built before any write so a signing failure leaves nothing behind.
	token, err := s.issue(user, tokenID)
	if err != nil {
		s.logger.Error("Session: failed to build token",
			"user", user,
			"error", err.Error())
		return model.RegisterResponse{Result: model.RegisterError}
	}

	account, err := s.accounts.Register(ctx, model.Registration{
		Username:    req.Username,
		PassHash:    req.PassHash,
		DisplayName: req.DispName,
		Email:       req.Email,
		TokenID:     tokenID,
		Template:    s.template,
	})
	if err != nil {
		result := registerResult(err)
		if result == model.RegisterError {
			s.logger.Error("Session: registration failed",
				"user", user,
				"error", err.Error())
		}
		return model.RegisterResponse{Result: result}
	}

	return model.RegisterResponse{
		Result:  model.RegisterSuccess,
		Account: &account,
		Token:   token,
	}
}

// Logout revokes the presented token. The token is parsed but its signature is not
// checked again; callers pass it through the Authorizer first.
func (s *Session) Logout(ctx context.Context, req model.LogoutRequest) model.LogoutResponse {
	tok, err := s.codec.Parse(req.AuthToken)
	if err != nil || tok.UserID == "" || tok.TokenID == "" {
		return model.LogoutResponse{Result: model.LogoutInvalidToken}
	}

	revoked, err := s.accounts.RevokeToken(ctx, tok.UserID, tok.TokenID)
	if err != nil {
		s.logger.Error("Session: logout failed",
			"user", tok.UserID,
			"error", err.Error())
		return model.LogoutResponse{Result: model.LogoutError}
	}

	s.logger.Info("Session: logout",
		"user", tok.UserID,
		"revoked", revoked)

	return model.LogoutResponse{Result: model.LogoutSuccess}
}

// Verify reports whether the token is authentic and still the current token of its user.
func (s *Session) Verify(ctx context.Context, req model.VerifyRequest) model.VerifyResponse {
	if !s.codec.VerifySignature(req.AuthToken) {
		return model.VerifyResponse{Result: false}
	}

	tok, err := s.codec.Parse(req.AuthToken)
	if err != nil || tok.UserID == "" || tok.TokenID == "" {
		return model.VerifyResponse{Result: false}
	}

	current, err := s.accounts.CurrentTokenID(ctx, tok.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Session: verify failed to read current token",
				"user", tok.UserID,
				"error", err.Error())
		}
		return model.VerifyResponse{Result: false}
	}

	return model.VerifyResponse{Result: current != "" && current == tok.TokenID}
}

func (s *Session) issue(user, tokenID string) (string, error) {
	now := s.now().UTC()
	return s.codec.Build(model.AuthToken{
		UserID:     user,
		Issued:     now,
		Expiration: now.Add(s.tokenTTL),
		TokenID:    tokenID,
	})
}

func registerResult(err error) model.RegisterResult {
	switch {
	case errors.Is(err, model.ErrInvalidUsername):
		return model.RegisterInvalidUsername
	case errors.Is(err, model.ErrInvalidDisplayName):
		return model.RegisterInvalidDispName
	case errors.Is(err, model.ErrInvalidEmail):
		return model.RegisterInvalidEmail
	case errors.Is(err, model.ErrBadPassHash):
		return model.RegisterBadPassHash
	case errors.Is(err, model.ErrUsernameTaken):
		return model.RegisterUsernameTaken
	case errors.Is(err, model.ErrEmailExists):
		return model.RegisterEmailExists
	default:
		return model.RegisterError
	}
}
