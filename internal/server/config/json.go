package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for lifetime fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// Pointer fields distinguish "absent" from "set to the zero value", so a
// partial file only overrides what it names.
type JsonConfig struct {
	Env              *string `json:"env"`
	EndpointAddrGRPC *string `json:"endpoint_addr_grpc"`
	MetricsAddr      *string `json:"metrics_addr"`

	StoreDriver   *string `json:"store_driver"`
	DatabaseDSN   *string `json:"database_dsn"`
	RedisAddr     *string `json:"redis_addr"`
	RedisPassword *string `json:"redis_password"`
	RedisDB       *int    `json:"redis_db"`

	AccessTokenSecret            *string         `json:"access_token_secret"`
	RefreshTokenSecret           *string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   *timex.Duration `json:"reset_token_validity_duration"`
	PasswordHashCost             *int            `json:"password_hash_cost"`

	MailDriver   *string `json:"mail_driver"`
	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port"`
	SMTPUsername *string `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`
	MailFrom     *string `json:"mail_from"`
	ResetURLBase *string `json:"reset_url_base"`

	MaskResetEnumeration           *bool `json:"mask_reset_enumeration"`
	RevokeSessionsOnPasswordChange *bool `json:"revoke_sessions_on_password_change"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag into config. Without the flag nothing is loaded.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	set(&config.Env, c.Env)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.MetricsAddr, c.MetricsAddr)

	set(&config.StoreDriver, c.StoreDriver)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.RedisPassword, c.RedisPassword)
	set(&config.RedisDB, c.RedisDB)

	set(&config.AccessTokenSecret, c.AccessTokenSecret)
	set(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration != nil {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	set(&config.PasswordHashCost, c.PasswordHashCost)

	set(&config.MailDriver, c.MailDriver)
	set(&config.SMTPHost, c.SMTPHost)
	set(&config.SMTPPort, c.SMTPPort)
	set(&config.SMTPUsername, c.SMTPUsername)
	set(&config.SMTPPassword, c.SMTPPassword)
	set(&config.MailFrom, c.MailFrom)
	set(&config.ResetURLBase, c.ResetURLBase)

	set(&config.MaskResetEnumeration, c.MaskResetEnumeration)
	set(&config.RevokeSessionsOnPasswordChange, c.RevokeSessionsOnPasswordChange)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
