package router

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	_ "github.com/dtroode/regicide-accounts/internal/api/grpc/codec"
	"github.com/dtroode/regicide-accounts/internal/api/grpc/handler"
	"github.com/dtroode/regicide-accounts/internal/api/grpc/middleware"
	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// Authorizer decides on tokens for the auth interceptor and builds gateway policies.
type Authorizer interface {
	middleware.Authorizer
	handler.Authorizer
}

// Router represents a gRPC router for the accounts service.
// It manages gRPC service registration and middleware configuration.
type Router struct {
	sessions       handler.SessionService
	authorizer     Authorizer
	tokens         handler.TokenParser
	contextManager model.ContextManager
	logger         *logger.Logger
	health         *health.Server
	reflection     bool
}

// New creates new gRPC Router instance.
func New(
	sessions handler.SessionService,
	authorizer Authorizer,
	tokens handler.TokenParser,
	contextManager model.ContextManager,
	logger *logger.Logger,
	withReflection bool,
) *Router {
	return &Router{
		sessions:       sessions,
		authorizer:     authorizer,
		tokens:         tokens,
		contextManager: contextManager,
		logger:         logger,
		health:         health.NewServer(),
		reflection:     withReflection,
	}
}

// authRequired selects the methods that need an authorized principal.
func authRequired(_ context.Context, c interceptors.CallMeta) bool {
	return c.FullMethod() == handler.LogoutMethod
}

// Register registers all gRPC services and middleware.
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authorizer, r.contextManager, r.logger)

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(logging.RecoverPanic)),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authRequired),
			),
		),
	)

	r.registerAccountRoutes(s)

	healthpb.RegisterHealthServer(s, r.health)
	r.health.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if r.reflection {
		reflection.Register(s)
	}

	return s
}

// Shutdown marks every service as not serving.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerAccountRoutes(server *grpc.Server) {
	accounts := handler.NewAccounts(r.sessions, r.authorizer, r.tokens, r.contextManager, r.logger)
	handler.RegisterAccountsServer(server, accounts)
}
