package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// TokenKind distinguishes access tokens from refresh tokens. It is carried
// in the "typ" claim as well as implied by the signing secret.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims are the registered JWT claims plus the token kind and, for access
// tokens, the account's email and name. Subject holds the account id.
type Claims struct {
	jwt.RegisteredClaims
	Type  TokenKind `json:"typ"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string { return c.Subject }

// MinterConfig holds the secrets and lifetimes of both token kinds.
type MinterConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Minter signs and verifies HS256 session tokens. It holds no mutable state.
type Minter struct {
	cfg MinterConfig
	now timex.Clock
}

func NewMinter(cfg MinterConfig, clock timex.Clock) *Minter {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &Minter{cfg: cfg, now: clock}
}

// IssueAccessToken returns a short-lived token identifying the account.
func (m *Minter) IssueAccessToken(accountID, email, name string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		},
		Type:  AccessToken,
		Email: email,
		Name:  name,
	}
	return m.sign(claims, m.cfg.AccessSecret)
}

// IssueRefreshToken returns a long-lived token. Each call yields a distinct
// token even within the same second because of the random jti.
func (m *Minter) IssueRefreshToken(accountID string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.RefreshTTL)),
		},
		Type: RefreshToken,
	}
	return m.sign(claims, m.cfg.RefreshSecret)
}

func (m *Minter) sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err)
	}

	return tokenString, nil
}

// Verify checks the signature, expiry and kind of tokenString.
//
// Errors: apperr.ErrTokenExpired once the expiry has passed,
// apperr.ErrTokenMalformed when the string is not a JWT at all and
// apperr.ErrTokenInvalid for anything else (bad signature, wrong kind,
// missing subject).
func (m *Minter) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := m.cfg.AccessSecret
	if kind == RefreshToken {
		secret = m.cfg.RefreshSecret
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, apperr.Wrap(apperr.CodeTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.CodeTokenExpired, err)
	case err != nil:
		return nil, apperr.Wrap(apperr.CodeTokenInvalid, err)
	}

	if !token.Valid || claims.Type != kind || claims.Subject == "" {
		return nil, apperr.New(apperr.CodeTokenInvalid)
	}

	return claims, nil
}
