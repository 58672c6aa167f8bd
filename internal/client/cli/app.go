package cli

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

// ClientFactory opens a connection to the account service.
type ClientFactory func(cfg *config.Config) (client.Client, error)

// DialClient is the production ClientFactory.
func DialClient(cfg *config.Config) (client.Client, error) {
	return client.NewAccountClient(cfg.ServerEndpointAddr)
}

type App struct {
	newClient ClientFactory

	cfg     *config.Config
	client  client.Client
	session *SessionStore
	in      *bufio.Reader
	out     io.Writer

	mu      sync.Mutex
	saveErr error
}

// open loads the stored session and connects. Token changes made by the
// client from then on are written back to the session file.
func (a *App) open(cmd *cobra.Command, cfg *config.Config) error {
	a.cfg = cfg
	a.in = bufio.NewReader(cmd.InOrStdin())
	a.out = cmd.OutOrStdout()
	a.session = NewSessionStore(cfg.SessionFile)

	tokens, err := a.session.Load()
	if err != nil {
		return err
	}

	c, err := a.newClient(cfg)
	if err != nil {
		return err
	}
	c.SetTokens(tokens)
	c.OnTokens(a.persist)
	a.client = c

	return nil
}

func (a *App) persist(t api.Tokens) {
	if err := a.session.Save(t); err != nil {
		a.mu.Lock()
		a.saveErr = err
		a.mu.Unlock()
	}
}

func (a *App) close() error {
	if a.client == nil {
		return nil
	}
	if err := a.client.Close(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveErr
}

// runE adapts fn to cobra and closes the client however fn ends.
func (a *App) runE(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		err := fn(cmd)
		if cerr := a.close(); err == nil {
			err = cerr
		}
		return err
	}
}

func (a *App) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
}

// text returns v, or prompts for it when empty.
func (a *App) text(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return GetSimpleText(a.in, prompt, a.out)
}
