package middleware

import (
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/regicide-accounts/internal/testutil"
)

func TestLogging_RecoverPanic(t *testing.T) {
	lg := NewLogging(testutil.MakeNoopLogger())
	interceptor := recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(lg.RecoverPanic))

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/regicide.Accounts/Login"},
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})

	assert.Equal(t, codes.Internal, status.Code(err))
}
