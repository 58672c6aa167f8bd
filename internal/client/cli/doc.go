// Package cli provides the gophauth command-line client.
//
// Each account operation is a cobra subcommand: register, login, refresh,
// logout, me, change-password, forgot-password and reset-password.
// Passwords are read from the terminal without echo. The session tokens are
// kept in a local file between invocations and rewritten whenever the
// client rotates them.
package cli
