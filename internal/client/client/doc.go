// Package client contains the client side of gophauth.v1.AccountService.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering the
//     account lifecycle: Register, Login, Logout, Refresh, Me,
//     ChangePassword, ForgotPassword and ResetPassword.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the access token via an interceptor, refreshes an
//     expired access token once and retries the call, and turns gRPC
//     statuses back into apperr errors.
//
// # Error Handling
//
// Failures carrying a stable error code come back as *apperr.Error and can
// be matched with errors.Is against the apperr sentinels. Transport
// failures surface as ErrUnavailable.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
