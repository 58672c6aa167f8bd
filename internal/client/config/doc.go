// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with --config.
//  3. Environment variables (GOPHAUTH_ADDR, GOPHAUTH_SESSION_FILE,
//     GOPHAUTH_TIMEOUT).
//  4. Command-line flags, applied by the CLI on top of the result.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "session_file": "/home/me/.gophauth/session.json",
//	  "request_timeout": "10s"
//	}
package config
