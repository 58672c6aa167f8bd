package client

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api"
)

type Client interface {
	Close() error
	Register(ctx context.Context, name, email, password string) (*api.Registered, error)
	Login(ctx context.Context, email, password string) (*api.Session, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*api.Tokens, error)
	Me(ctx context.Context) (*api.Account, error)
	ChangePassword(ctx context.Context, current, next, confirmation string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Tokens() api.Tokens
	SetTokens(api.Tokens)
	OnTokens(func(api.Tokens))
}
