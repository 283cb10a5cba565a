package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

const (
	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"

	principalAllowed   = "API"
	principalAnonymous = "User"
	usagePlanKey       = "Public"
)

// Authorizer validates session tokens for the gateway. It does not touch the store,
// so a rotated but well-signed token is still allowed here; Verify checks rotation.
type Authorizer struct {
	codec  model.TokenCodec
	logger *logger.Logger
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(codec model.TokenCodec, logger *logger.Logger) *Authorizer {
	return &Authorizer{codec: codec, logger: logger}
}

// Decide checks the signature and the user id of token.
// Token expiry is not checked.
func (a *Authorizer) Decide(token string) model.Decision {
	if strings.TrimSpace(token) == "" {
		return model.Decision{}
	}
	if !a.codec.VerifySignature(token) {
		a.logger.Debug("Authorizer: signature rejected")
		return model.Decision{}
	}

	tok, err := a.codec.Parse(token)
	if err != nil {
		a.logger.Debug("Authorizer: token unreadable",
			"error", err.Error())
		return model.Decision{}
	}

	n := utf8.RuneCountInString(tok.UserID)
	if strings.TrimSpace(tok.UserID) == "" || n < model.UsernameMinLength || n > model.UsernameMaxLength {
		a.logger.Warn("Authorizer: signed token carries an invalid user id",
			"user_length", n)
		return model.Decision{}
	}

	return model.Decision{
		Allow:       true,
		UserID:      tok.UserID,
		Permissions: BuildPermissions(tok),
	}
}

// Authorize builds the gateway policy for req.
func (a *Authorizer) Authorize(_ context.Context, req model.AuthorizerRequest) model.AuthorizerResponse {
	d := a.Decide(req.AuthorizationToken)

	resp := model.AuthorizerResponse{
		PrincipalID: principalAnonymous,
		PolicyDocument: model.PolicyDocument{
			Version: policyVersion,
			Statement: []model.PolicyStatement{{
				Action:   []string{invokeAction},
				Effect:   model.EffectDeny,
				Resource: []string{req.MethodArn},
			}},
		},
		Context: model.AuthorizerContext{
			User: principalAnonymous,
			Path: req.MethodArn,
		},
		UsageIdentifierKey: usagePlanKey,
	}

	if d.Allow {
		resp.PrincipalID = principalAllowed
		resp.PolicyDocument.Statement[0].Effect = model.EffectAllow
		resp.Context.User = d.UserID
		resp.Context.Permissions = d.Permissions
	}

	return resp
}

// BuildPermissions returns the '|' separated permission flags of the token owner.
// Every user currently holds the general flag only.
func BuildPermissions(_ model.AuthToken) string {
	return strings.Join([]string{model.PermissionGeneral}, "|")
}
