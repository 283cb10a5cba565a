package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpcctx "github.com/dtroode/regicide-accounts/internal/api/grpc/context"
	"github.com/dtroode/regicide-accounts/internal/logger"
)

// RequestIDHeader is echoed back in response headers. A valid client supplied id is kept.
const RequestIDHeader = "x-request-id"

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC assigns a request id and logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	requestID := incomingRequestID(ctx)
	ctx = grpcctx.WithRequestID(ctx, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

	l.logger.Debug("gRPC request started",
		"method", info.FullMethod,
		"request_id", requestID)

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Internal
		}
	}

	l.logger.Info("gRPC request completed",
		"method", info.FullMethod,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String())

	if err != nil {
		l.logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"request_id", requestID,
			"error", err.Error(),
			"status", statusCode.String())
	}

	return resp, err
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDHeader); len(ids) > 0 {
			if id, err := uuid.Parse(ids[0]); err == nil {
				return id.String()
			}
		}
	}
	return uuid.NewString()
}
