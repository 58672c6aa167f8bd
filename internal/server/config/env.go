package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays GOPHAUTH_* environment variables onto config.
// Variables that are not set leave the current value untouched.
// A variable that cannot be parsed into its field causes a panic.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
