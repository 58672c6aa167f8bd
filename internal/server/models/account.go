package models

import "time"

// ResetToken is a pending password reset: the digest of the secret that was
// mailed out and the moment it stops being redeemable. An account either
// has both or neither.
type ResetToken struct {
	Hash      string
	ExpiresAt time.Time
}

// Account is the stored user record.
type Account struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
	// RefreshToken is the only currently valid refresh token; empty means
	// no active session.
	RefreshToken string
	Reset        *ResetToken
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public strips credentials and session state.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// PublicAccount is the projection of an account that may leave the service.
type PublicAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
