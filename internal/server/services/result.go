package services

import "github.com/dmitrijs2005/gophauth/internal/server/models"

// Result is the outward envelope of every successful operation.
type Result[T any] struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

// Empty is the payload of operations that return nothing.
type Empty struct{}

// RegisterData echoes the registered identity.
type RegisterData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginData is the session handed out by Login.
type LoginData struct {
	Account      models.PublicAccount `json:"account"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
}
