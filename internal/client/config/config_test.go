package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "session.json", filepath.Base(c.SessionFile))
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeFile(t, `{"server_endpoint_addr":"auth:50051","session_file":"/tmp/s.json","request_timeout":"3s"}`)
	t.Setenv("GOPHAUTH_TIMEOUT", "7s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(&Config{
		ServerEndpointAddr: "auth:50051",
		SessionFile:        "/tmp/s.json",
		RequestTimeout:     7 * time.Second,
	}, cfg))
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeFile(t, `{"request_timeout": 2000000000}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, `{not json`))
	assert.Error(t, err)

	t.Setenv("GOPHAUTH_TIMEOUT", "soon")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
