package context

import (
	"context"

	"github.com/dtroode/regicide-accounts/internal/model"
)

type principalKey struct{}

type requestIDKey struct{}

// Manager stores request scoped values set by interceptors.
// Values live in the Go context, so clients cannot inject them through metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetPrincipalToContext returns a context carrying the authorized principal.
func (m *Manager) SetPrincipalToContext(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipalFromContext returns the principal set by the auth interceptor.
func (m *Manager) GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	if !ok || p.UserID == "" {
		return model.Principal{}, false
	}
	return p, true
}

// WithRequestID returns a context carrying the request id assigned by the logging interceptor.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id of ctx, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
