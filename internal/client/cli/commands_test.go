package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

type call struct {
	method string
	args   []string
}

// fakeClient records calls and rotates tokens the way the real client does.
type fakeClient struct {
	calls    []call
	tokens   api.Tokens
	onTokens func(api.Tokens)
	err      error
	closed   bool
	deadline bool
}

func (f *fakeClient) record(ctx context.Context, method string, args ...string) error {
	_, f.deadline = ctx.Deadline()
	f.calls = append(f.calls, call{method: method, args: args})
	return f.err
}

func (f *fakeClient) setTokens(t api.Tokens) {
	f.tokens = t
	if f.onTokens != nil {
		f.onTokens(t)
	}
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) Register(ctx context.Context, name, email, password string) (*api.Registered, error) {
	if err := f.record(ctx, "Register", name, email, password); err != nil {
		return nil, err
	}
	return &api.Registered{Name: name, Email: strings.ToLower(email)}, nil
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.Session, error) {
	if err := f.record(ctx, "Login", email, password); err != nil {
		return nil, err
	}
	f.setTokens(api.Tokens{AccessToken: "A1", RefreshToken: "R1"})
	return &api.Session{Account: api.Account{Name: "Ann", Email: email}, AccessToken: "A1", RefreshToken: "R1"}, nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	if err := f.record(ctx, "Logout"); err != nil {
		return err
	}
	f.setTokens(api.Tokens{})
	return nil
}

func (f *fakeClient) Refresh(ctx context.Context) (*api.Tokens, error) {
	if err := f.record(ctx, "Refresh", f.tokens.RefreshToken); err != nil {
		return nil, err
	}
	t := api.Tokens{AccessToken: "A2", RefreshToken: "R2"}
	f.setTokens(t)
	return &t, nil
}

func (f *fakeClient) Me(ctx context.Context) (*api.Account, error) {
	if err := f.record(ctx, "Me", f.tokens.AccessToken); err != nil {
		return nil, err
	}
	return &api.Account{ID: "id-1", Name: "Ann", Email: "a@x.com", Role: "user", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeClient) ChangePassword(ctx context.Context, current, next, confirmation string) error {
	return f.record(ctx, "ChangePassword", current, next, confirmation)
}

func (f *fakeClient) ForgotPassword(ctx context.Context, email string) error {
	return f.record(ctx, "ForgotPassword", email)
}

func (f *fakeClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.record(ctx, "ResetPassword", token, newPassword)
}

func (f *fakeClient) Tokens() api.Tokens           { return f.tokens }
func (f *fakeClient) SetTokens(t api.Tokens)       { f.setTokens(t) }
func (f *fakeClient) OnTokens(fn func(api.Tokens)) { f.onTokens = fn }

// stubPasswords answers password prompts in order.
func stubPasswords(t *testing.T, pw ...string) {
	t.Helper()
	old := getPassword
	t.Cleanup(func() { getPassword = old })
	getPassword = func(_ io.Writer, prompt string) (string, error) {
		if len(pw) == 0 {
			t.Fatalf("unexpected password prompt %q", prompt)
		}
		p := pw[0]
		pw = pw[1:]
		return p, nil
	}
}

type run struct {
	out    string
	err    error
	client *fakeClient
}

func execute(t *testing.T, fc *fakeClient, sessionFile, stdin string, args ...string) run {
	t.Helper()

	var gotCfg *config.Config
	root := NewRootCmd(func(cfg *config.Config) (client.Client, error) {
		gotCfg = cfg
		return fc, nil
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--session", sessionFile, "--addr", "auth:1"}, args...))

	err := root.Execute()
	if gotCfg != nil {
		assert.Equal(t, "auth:1", gotCfg.ServerEndpointAddr)
	}
	return run{out: out.String(), err: err, client: fc}
}

func TestRegister_PromptsForMissingFields(t *testing.T) {
	stubPasswords(t, "pw")
	session := filepath.Join(t.TempDir(), "s.json")

	r := execute(t, &fakeClient{}, session, "Ann\nA@X.com\n", "register")
	require.NoError(t, r.err)

	require.Len(t, r.client.calls, 1)
	assert.Equal(t, call{"Register", []string{"Ann", "A@X.com", "pw"}}, r.client.calls[0])
	assert.Contains(t, r.out, "User created successfully: Ann <a@x.com>")
	assert.True(t, r.client.deadline)
	assert.True(t, r.client.closed)
}

func TestLoginThenMeThenLogout_PersistsSession(t *testing.T) {
	session := filepath.Join(t.TempDir(), "s.json")
	store := NewSessionStore(session)

	stubPasswords(t, "pw")
	r := execute(t, &fakeClient{}, session, "", "login", "--email", "a@x.com")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Logged in as Ann <a@x.com>")

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, api.Tokens{AccessToken: "A1", RefreshToken: "R1"}, saved)

	r = execute(t, &fakeClient{}, session, "", "me")
	require.NoError(t, r.err)
	assert.Equal(t, call{"Me", []string{"A1"}}, r.client.calls[0])
	assert.Contains(t, r.out, "Email:   a@x.com")

	r = execute(t, &fakeClient{}, session, "", "refresh")
	require.NoError(t, r.err)
	assert.Equal(t, call{"Refresh", []string{"R1"}}, r.client.calls[0])
	saved, _ = store.Load()
	assert.Equal(t, "R2", saved.RefreshToken)

	r = execute(t, &fakeClient{}, session, "", "logout")
	require.NoError(t, r.err)
	saved, _ = store.Load()
	assert.Equal(t, api.Tokens{}, saved)
}

func TestChangePassword_ReadsThreePasswords(t *testing.T) {
	stubPasswords(t, "old", "new", "new")
	r := execute(t, &fakeClient{}, filepath.Join(t.TempDir(), "s.json"), "", "change-password")
	require.NoError(t, r.err)
	assert.Equal(t, call{"ChangePassword", []string{"old", "new", "new"}}, r.client.calls[0])
	assert.Contains(t, r.out, "Password changed successfully")
}

func TestForgotAndResetPassword(t *testing.T) {
	session := filepath.Join(t.TempDir(), "s.json")

	r := execute(t, &fakeClient{}, session, "", "forgot-password", "--email", "a@x.com")
	require.NoError(t, r.err)
	assert.Equal(t, call{"ForgotPassword", []string{"a@x.com"}}, r.client.calls[0])

	stubPasswords(t, "newpass")
	r = execute(t, &fakeClient{}, session, "abc123\n", "reset-password")
	require.NoError(t, r.err)
	assert.Equal(t, call{"ResetPassword", []string{"abc123", "newpass"}}, r.client.calls[0])
	assert.Contains(t, r.out, "Password reset successfully")
}

func TestCommand_ServiceErrorIsReturned(t *testing.T) {
	stubPasswords(t, "wrong")
	fc := &fakeClient{err: apperr.ErrInvalidCredentials}

	r := execute(t, fc, filepath.Join(t.TempDir(), "s.json"), "", "login", "--email", "a@x.com")
	assert.ErrorIs(t, r.err, apperr.ErrInvalidCredentials)
	assert.True(t, fc.closed)
}

func TestRoot_FactoryError(t *testing.T) {
	root := NewRootCmd(func(*config.Config) (client.Client, error) {
		return nil, errors.New("dial failed")
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--session", filepath.Join(t.TempDir(), "s.json"), "me"})

	assert.EqualError(t, root.Execute(), "dial failed")
}
