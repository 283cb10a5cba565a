package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dtroode/regicide-accounts/internal/api/grpc/codec"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "regicide.Accounts"

// Full method names.
const (
	LoginMethod     = "/" + ServiceName + "/Login"
	RegisterMethod  = "/" + ServiceName + "/Register"
	LogoutMethod    = "/" + ServiceName + "/Logout"
	VerifyMethod    = "/" + ServiceName + "/Verify"
	AuthorizeMethod = "/" + ServiceName + "/Authorize"
)

// AccountsServer is the server API of the accounts service.
type AccountsServer interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResponse, error)
	Logout(ctx context.Context, req *model.LogoutRequest) (*model.LogoutResponse, error)
	Verify(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error)
	Authorize(ctx context.Context, req *model.AuthorizerRequest) (*model.AuthorizerResponse, error)
}

// AccountsServiceDesc describes the accounts service. Payloads use the json codec.
var AccountsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unary(LoginMethod, AccountsServer.Login)},
		{MethodName: "Register", Handler: unary(RegisterMethod, AccountsServer.Register)},
		{MethodName: "Logout", Handler: unary(LogoutMethod, AccountsServer.Logout)},
		{MethodName: "Verify", Handler: unary(VerifyMethod, AccountsServer.Verify)},
		{MethodName: "Authorize", Handler: unary(AuthorizeMethod, AccountsServer.Authorize)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "regicide/accounts.json",
}

// RegisterAccountsServer registers srv on s.
func RegisterAccountsServer(s grpc.ServiceRegistrar, srv AccountsServer) {
	s.RegisterService(&AccountsServiceDesc, srv)
}

func unary[Req, Resp any](
	fullMethod string,
	call func(AccountsServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountsServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccountsClient calls the accounts service with the json codec.
type AccountsClient struct {
	cc grpc.ClientConnInterface
}

// NewAccountsClient creates an AccountsClient over cc.
func NewAccountsClient(cc grpc.ClientConnInterface) *AccountsClient {
	return &AccountsClient{cc: cc}
}

func (c *AccountsClient) Login(ctx context.Context, in *model.LoginRequest, opts ...grpc.CallOption) (*model.LoginResponse, error) {
	out := new(model.LoginResponse)
	if err := c.invoke(ctx, LoginMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountsClient) Register(ctx context.Context, in *model.RegisterRequest, opts ...grpc.CallOption) (*model.RegisterResponse, error) {
	out := new(model.RegisterResponse)
	if err := c.invoke(ctx, RegisterMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountsClient) Logout(ctx context.Context, in *model.LogoutRequest, opts ...grpc.CallOption) (*model.LogoutResponse, error) {
	out := new(model.LogoutResponse)
	if err := c.invoke(ctx, LogoutMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountsClient) Verify(ctx context.Context, in *model.VerifyRequest, opts ...grpc.CallOption) (*model.VerifyResponse, error) {
	out := new(model.VerifyResponse)
	if err := c.invoke(ctx, VerifyMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountsClient) Authorize(ctx context.Context, in *model.AuthorizerRequest, opts ...grpc.CallOption) (*model.AuthorizerResponse, error) {
	out := new(model.AuthorizerResponse)
	if err := c.invoke(ctx, AuthorizeMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountsClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
