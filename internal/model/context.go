package model

import "context"

// Principal is the identity the authorizer attached to a request.
type Principal struct {
	UserID      string
	Permissions string
}

type ContextManager interface {
	SetPrincipalToContext(ctx context.Context, principal Principal) context.Context
	GetPrincipalFromContext(ctx context.Context) (Principal, bool)
}
