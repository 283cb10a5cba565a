package context

import (
	stdctx "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/regicide-accounts/internal/model"
)

func TestManager_SetAndGetPrincipal(t *testing.T) {
	m := NewManager()
	p := model.Principal{UserID: "alice", Permissions: model.PermissionGeneral}
	ctx := m.SetPrincipalToContext(stdctx.Background(), p)

	got, ok := m.GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestManager_GetPrincipal_NotFound(t *testing.T) {
	m := NewManager()

	_, ok := m.GetPrincipalFromContext(stdctx.Background())
	assert.False(t, ok)

	_, ok = m.GetPrincipalFromContext(m.SetPrincipalToContext(stdctx.Background(), model.Principal{}))
	assert.False(t, ok, "empty user id is not a principal")
}

func TestManager_GetPrincipal_IgnoresMetadata(t *testing.T) {
	m := NewManager()
	md := metadata.New(map[string]string{"user_id": "mallory"})
	ctx := metadata.NewIncomingContext(stdctx.Background(), md)

	_, ok := m.GetPrincipalFromContext(ctx)
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(stdctx.Background()))
	assert.Equal(t, "req-1", RequestID(WithRequestID(stdctx.Background(), "req-1")))
}
