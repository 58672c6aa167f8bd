package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

func loadEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}
