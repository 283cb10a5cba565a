package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// AuthorizationHeader is the metadata key carrying the session token.
const AuthorizationHeader = "authorization"

// Authorizer decides whether a session token may call protected methods.
type Authorizer interface {
	Decide(token string) model.Decision
}

// Authenticate validates session tokens and injects the principal into context.
type Authenticate struct {
	authorizer     Authorizer
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authorizer Authorizer, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authorizer: authorizer, contextManager: contextManager, logger: logger}
}

// AuthFunc reads the authorization metadata and returns a context with the principal.
// Both a bare token and a "Bearer " prefixed one are accepted.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(AuthorizationHeader); len(values) > 0 {
			token = strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
		}
	}

	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	d := m.authorizer.Decide(token)
	if !d.Allow {
		m.logger.Debug("Authenticate middleware: token denied")
		return nil, status.Error(codes.Unauthenticated, "invalid authorization token")
	}

	return m.contextManager.SetPrincipalToContext(ctx, model.Principal{
		UserID:      d.UserID,
		Permissions: d.Permissions,
	}), nil
}
