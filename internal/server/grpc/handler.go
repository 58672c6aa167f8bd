package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.Response[api.Registered], error) {
	res, err := s.accounts.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Registered]{
		StatusCode: res.StatusCode,
		Message:    res.Message,
		Data:       api.Registered{Name: res.Data.Name, Email: res.Data.Email},
	}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.Response[api.Session], error) {
	res, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Session]{
		StatusCode: res.StatusCode,
		Message:    res.Message,
		Data: api.Session{
			Account:      toAPIAccount(res.Data.Account),
			AccessToken:  res.Data.AccessToken,
			RefreshToken: res.Data.RefreshToken,
		},
	}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *api.Empty) (*api.Response[api.Empty], error) {
	id, err := accountIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Logout(ctx, id)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Empty]{StatusCode: res.StatusCode, Message: res.Message}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.Response[api.Tokens], error) {
	res, err := s.accounts.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Tokens]{
		StatusCode: res.StatusCode,
		Message:    res.Message,
		Data:       api.Tokens{AccessToken: res.Data.AccessToken, RefreshToken: res.Data.RefreshToken},
	}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.Response[api.Empty], error) {
	id, err := accountIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.ChangePassword(ctx, id, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Empty]{StatusCode: res.StatusCode, Message: res.Message}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *api.Empty) (*api.Response[api.Account], error) {
	id, err := accountIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Me(ctx, id)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Account]{
		StatusCode: res.StatusCode,
		Message:    res.Message,
		Data:       toAPIAccount(res.Data),
	}, nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *api.ForgotPasswordRequest) (*api.Response[api.Empty], error) {
	res, err := s.accounts.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Empty]{StatusCode: res.StatusCode, Message: res.Message}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *api.ResetPasswordRequest) (*api.Response[api.Empty], error) {
	res, err := s.accounts.RedeemPasswordReset(ctx, req.Token, req.NewPassword)
	if err != nil {
		return nil, err
	}

	return &api.Response[api.Empty]{StatusCode: res.StatusCode, Message: res.Message}, nil
}

func toAPIAccount(a models.PublicAccount) api.Account {
	return api.Account{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role, CreatedAt: a.CreatedAt}
}

type ctxKey string

const accountIDKey ctxKey = "accountID"

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func accountIDFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(accountIDKey).(string)
	if !ok || id == "" {
		return "", apperr.New(apperr.CodeUnauthenticated)
	}
	return id, nil
}
