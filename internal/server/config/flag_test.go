package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-env", "prod", "-a", "127.0.0.1:9090", "-m", ":9100", "-store", "redis",
			"-d", "db", "-redis", "cache:6379", "-s", "access", "-S", "refresh",
			"-t", "5m", "-r", "48h", "-x", "30m", "-cost", "12",
			"-mail", "smtp", "-smtp", "mx.local", "-smtp-port", "25", "-from", "a@b.c",
			"-reset-url", "https://app/reset", "-mask-reset", "-revoke-on-change",
		},
			expected: &Config{
				Env:                            "prod",
				EndpointAddrGRPC:               "127.0.0.1:9090",
				MetricsAddr:                    ":9100",
				StoreDriver:                    "redis",
				DatabaseDSN:                    "db",
				RedisAddr:                      "cache:6379",
				AccessTokenSecret:              "access",
				RefreshTokenSecret:             "refresh",
				AccessTokenValidityDuration:    5 * time.Minute,
				RefreshTokenValidityDuration:   48 * time.Hour,
				ResetTokenValidityDuration:     30 * time.Minute,
				PasswordHashCost:               12,
				MailDriver:                     "smtp",
				SMTPHost:                       "mx.local",
				SMTPPort:                       25,
				MailFrom:                       "a@b.c",
				ResetURLBase:                   "https://app/reset",
				MaskResetEnumeration:           true,
				RevokeSessionsOnPasswordChange: true,
			}},
		{name: "foreign flags are ignored", args: []string{"cmd", "-c", "cfg.json", "-a", ":1"},
			expected: &Config{EndpointAddrGRPC: ":1"}},
		{name: "bad duration", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
