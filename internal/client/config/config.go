package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the gophauth CLI.
type Config struct {
	ServerEndpointAddr string        `env:"GOPHAUTH_ADDR"`
	SessionFile        string        `env:"GOPHAUTH_SESSION_FILE"`
	RequestTimeout     time.Duration `env:"GOPHAUTH_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SessionFile = defaultSessionFile()
	c.RequestTimeout = 10 * time.Second
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gophauth", "session.json")
}

// LoadConfig applies defaults, then the JSON file at path (when non-empty),
// then the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		if err := loadJson(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
