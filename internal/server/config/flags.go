package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var ownedFlags = flagx.Owned{
	Valued: []string{
		"-env", "-a", "-m", "-store", "-d", "-redis",
		"-s", "-S", "-t", "-r", "-x", "-cost",
		"-mail", "-smtp", "-smtp-port", "-from", "-reset-url",
	},
	Bool: []string{"-mask-reset", "-revoke-on-change"},
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-env string        logging environment (local, dev, prod)
//	-a string          gRPC bind address (e.g., ":50051")
//	-m string          metrics/health HTTP bind address
//	-store string      account store driver (postgres, redis, memory)
//	-d string          PostgreSQL DSN
//	-redis string      Redis address
//	-s string          access token HMAC secret
//	-S string          refresh token HMAC secret
//	-t duration        access token lifetime
//	-r duration        refresh token lifetime
//	-x duration        reset token lifetime
//	-cost int          bcrypt cost
//	-mail string       mail driver (smtp, log)
//	-smtp string       SMTP host
//	-smtp-port int     SMTP port
//	-from string       sender address
//	-reset-url string  base URL of the password reset page
//	-mask-reset        answer reset requests for unknown emails with success
//	-revoke-on-change  clear the session when a password is changed
//
// os.Args is filtered with flagx.FilterArgs first so that flags owned by other
// layers (such as -c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], ownedFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Env, "env", config.Env, "logging environment")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for metrics and health checks")
	fs.StringVar(&config.StoreDriver, "store", config.StoreDriver, "account store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")

	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity duration")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity duration")
	fs.DurationVar(&config.ResetTokenValidityDuration, "x", config.ResetTokenValidityDuration, "reset token validity duration")
	fs.IntVar(&config.PasswordHashCost, "cost", config.PasswordHashCost, "bcrypt cost")

	fs.StringVar(&config.MailDriver, "mail", config.MailDriver, "mail driver")
	fs.StringVar(&config.SMTPHost, "smtp", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.MailFrom, "from", config.MailFrom, "sender address")
	fs.StringVar(&config.ResetURLBase, "reset-url", config.ResetURLBase, "password reset page base URL")

	fs.BoolVar(&config.MaskResetEnumeration, "mask-reset", config.MaskResetEnumeration, "do not reveal unknown emails on reset requests")
	fs.BoolVar(&config.RevokeSessionsOnPasswordChange, "revoke-on-change", config.RevokeSessionsOnPasswordChange, "revoke refresh token on password change")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
