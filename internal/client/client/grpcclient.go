package client

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// needsToken lists the methods sent with the access token.
var needsToken = map[string]bool{
	api.FullMethod(api.MethodLogout):         true,
	api.FullMethod(api.MethodChangePassword): true,
	api.FullMethod(api.MethodMe):             true,
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     func(api.Tokens)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if !needsToken[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	tokens := s.Tokens()
	if tokens.AccessToken == "" {
		return ErrNoSession
	}

	err := invoker(withAccessToken(ctx, tokens.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != string(apperr.CodeTokenExpired) {
		return err
	}
	if tokens.RefreshToken == "" {
		return err
	}

	var refreshed api.Response[api.Tokens]
	if err := invoker(ctx, api.FullMethod(api.MethodRefresh),
		&api.RefreshRequest{RefreshToken: tokens.RefreshToken}, &refreshed, cc, opts...); err != nil {
		return err
	}
	s.SetTokens(refreshed.Data)

	// tokens refreshed, retrying with the new access token
	return invoker(withAccessToken(ctx, refreshed.Data.AccessToken), method, req, reply, cc, opts...)
}

// NewAccountClient connects to endpointURL. Extra dial options are appended
// to the defaults, which use plaintext transport.
func NewAccountClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// OnTokens registers fn to be called whenever the session tokens change,
// including after a transparent refresh.
func (s *GRPCClient) OnTokens(fn func(api.Tokens)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokens = fn
}

func (s *GRPCClient) Tokens() api.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.Tokens{AccessToken: s.accessToken, RefreshToken: s.refreshToken}
}

func (s *GRPCClient) SetTokens(t api.Tokens) {
	s.mu.Lock()
	s.accessToken = t.AccessToken
	s.refreshToken = t.RefreshToken
	fn := s.onTokens
	s.mu.Unlock()

	if fn != nil {
		fn(t)
	}
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, reply any) error {
	return s.mapError(s.conn.Invoke(ctx, api.FullMethod(method), req, reply))
}

func (s *GRPCClient) Register(ctx context.Context, name, email, password string) (*api.Registered, error) {
	var resp api.Response[api.Registered]
	if err := s.invoke(ctx, api.MethodRegister, &api.RegisterRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.Session, error) {
	var resp api.Response[api.Session]
	if err := s.invoke(ctx, api.MethodLogin, &api.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	s.SetTokens(api.Tokens{AccessToken: resp.Data.AccessToken, RefreshToken: resp.Data.RefreshToken})

	return &resp.Data, nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	var resp api.Response[api.Empty]
	if err := s.invoke(ctx, api.MethodLogout, &api.Empty{}, &resp); err != nil {
		return err
	}

	s.SetTokens(api.Tokens{})

	return nil
}

func (s *GRPCClient) Refresh(ctx context.Context) (*api.Tokens, error) {
	current := s.Tokens()
	if current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	var resp api.Response[api.Tokens]
	if err := s.invoke(ctx, api.MethodRefresh, &api.RefreshRequest{RefreshToken: current.RefreshToken}, &resp); err != nil {
		return nil, err
	}

	s.SetTokens(resp.Data)

	return &resp.Data, nil
}

func (s *GRPCClient) Me(ctx context.Context) (*api.Account, error) {
	var resp api.Response[api.Account]
	if err := s.invoke(ctx, api.MethodMe, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, current, next, confirmation string) error {
	var resp api.Response[api.Empty]
	return s.invoke(ctx, api.MethodChangePassword,
		&api.ChangePasswordRequest{CurrentPassword: current, NewPassword: next, ConfirmPassword: confirmation}, &resp)
}

func (s *GRPCClient) ForgotPassword(ctx context.Context, email string) error {
	var resp api.Response[api.Empty]
	return s.invoke(ctx, api.MethodForgotPassword, &api.ForgotPasswordRequest{Email: email}, &resp)
}

func (s *GRPCClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	var resp api.Response[api.Empty]
	return s.invoke(ctx, api.MethodResetPassword, &api.ResetPasswordRequest{Token: token, NewPassword: newPassword}, &resp)
}

// mapError restores taxonomy errors from the status message; other
// transport failures become ErrUnavailable.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if code := apperr.Code(st.Message()); code.Known() {
		return apperr.New(code)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
