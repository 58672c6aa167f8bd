package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// AccountService is the business layer behind the transport.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*services.Result[services.RegisterData], error)
	Login(ctx context.Context, email, password string) (*services.Result[services.LoginData], error)
	Logout(ctx context.Context, accountID string) (*services.Result[services.Empty], error)
	RefreshSession(ctx context.Context, refreshToken string) (*services.Result[models.TokenPair], error)
	ChangePassword(ctx context.Context, accountID, current, next, confirmation string) (*services.Result[services.Empty], error)
	RequestPasswordReset(ctx context.Context, email string) (*services.Result[services.Empty], error)
	RedeemPasswordReset(ctx context.Context, secret, newPassword string) (*services.Result[services.Empty], error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	Me(ctx context.Context, accountID string) (*services.Result[models.PublicAccount], error)
}

// accountServer is what the service descriptor dispatches to.
type accountServer interface {
	Register(context.Context, *api.RegisterRequest) (*api.Response[api.Registered], error)
	Login(context.Context, *api.LoginRequest) (*api.Response[api.Session], error)
	Logout(context.Context, *api.Empty) (*api.Response[api.Empty], error)
	Refresh(context.Context, *api.RefreshRequest) (*api.Response[api.Tokens], error)
	ChangePassword(context.Context, *api.ChangePasswordRequest) (*api.Response[api.Empty], error)
	Me(context.Context, *api.Empty) (*api.Response[api.Account], error)
	ForgotPassword(context.Context, *api.ForgotPasswordRequest) (*api.Response[api.Empty], error)
	ResetPassword(context.Context, *api.ResetPasswordRequest) (*api.Response[api.Empty], error)
}

// authenticated lists the methods that need a valid access token.
var authenticated = map[string]bool{
	api.FullMethod(api.MethodLogout):         true,
	api.FullMethod(api.MethodChangePassword): true,
	api.FullMethod(api.MethodMe):             true,
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*accountServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: api.MethodRegister, Handler: unary(api.MethodRegister, accountServer.Register)},
		{MethodName: api.MethodLogin, Handler: unary(api.MethodLogin, accountServer.Login)},
		{MethodName: api.MethodLogout, Handler: unary(api.MethodLogout, accountServer.Logout)},
		{MethodName: api.MethodRefresh, Handler: unary(api.MethodRefresh, accountServer.Refresh)},
		{MethodName: api.MethodChangePassword, Handler: unary(api.MethodChangePassword, accountServer.ChangePassword)},
		{MethodName: api.MethodMe, Handler: unary(api.MethodMe, accountServer.Me)},
		{MethodName: api.MethodForgotPassword, Handler: unary(api.MethodForgotPassword, accountServer.ForgotPassword)},
		{MethodName: api.MethodResetPassword, Handler: unary(api.MethodResetPassword, accountServer.ResetPassword)},
	},
	Streams: []grpc.StreamDesc{},
}

// unary adapts a typed method to grpc.MethodHandler, decoding the request
// and running it through the interceptor chain.
func unary[Req, Resp any](method string, call func(accountServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	fullMethod := api.FullMethod(method)

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(accountServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(accountServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
