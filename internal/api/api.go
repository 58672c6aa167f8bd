// Package api holds the wire contract of gophauth.v1.AccountService shared
// by the gRPC server and client. Messages travel as JSON using the codec
// registered by this package.
package api

import "time"

const ServiceName = "gophauth.v1.AccountService"

// Method names and their full gRPC paths.
const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodLogout         = "Logout"
	MethodRefresh        = "Refresh"
	MethodChangePassword = "ChangePassword"
	MethodMe             = "Me"
	MethodForgotPassword = "ForgotPassword"
	MethodResetPassword  = "ResetPassword"
)

// FullMethod returns the gRPC path of a method of the account service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RequestIDHeader is the response header carrying the request id.
const RequestIDHeader = "x-request-id"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type Empty struct{}

// Response mirrors the service result envelope.
type Response[T any] struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

type Registered struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	Account      Account `json:"account"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
