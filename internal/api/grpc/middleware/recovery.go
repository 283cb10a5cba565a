package middleware

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcctx "github.com/dtroode/regicide-accounts/internal/api/grpc/context"
)

// RecoverPanic converts a handler panic into an Internal status and logs it.
// It matches the go-grpc-middleware recovery.RecoveryHandlerFuncContext signature.
func (l *Logging) RecoverPanic(ctx context.Context, p any) error {
	l.logger.Error("gRPC handler panicked",
		"request_id", grpcctx.RequestID(ctx),
		"panic", fmt.Sprint(p))
	return status.Error(codes.Internal, "internal server error")
}
