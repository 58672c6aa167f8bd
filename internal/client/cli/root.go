package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

// NewRootCmd creates the root command of the gophauth CLI.
func NewRootCmd(newClient ClientFactory) *cobra.Command {
	app := &App{newClient: newClient}

	var (
		configFile  string
		addr        string
		sessionFile string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:          "gophauth",
		Short:        "gophauth account client",
		Long:         `Manage a gophauth account: register, sign in, rotate the session and reset a forgotten password.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.ServerEndpointAddr = addr
			}
			if flags.Changed("session") {
				cfg.SessionFile = sessionFile
			}
			if flags.Changed("timeout") {
				cfg.RequestTimeout = timeout
			}

			return app.open(cmd, cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path")
	pf.StringVarP(&addr, "addr", "a", "", "address:port of the gRPC endpoint")
	pf.StringVar(&sessionFile, "session", "", "session file path")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout")

	cmd.AddCommand(
		newRegisterCmd(app),
		newLoginCmd(app),
		newRefreshCmd(app),
		newLogoutCmd(app),
		newMeCmd(app),
		newChangePasswordCmd(app),
		newForgotPasswordCmd(app),
		newResetPasswordCmd(app),
	)

	return cmd
}
