package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

const resetSecretBytes = 32

// ResetToken is a freshly generated reset secret. Only Digest and ExpiresAt
// are ever persisted; Secret goes to the account owner and nowhere else.
type ResetToken struct {
	Secret    string
	Digest    string
	ExpiresAt time.Time
}

// ResetGenerator produces one-time password reset secrets.
type ResetGenerator struct {
	ttl time.Duration
	now timex.Clock
}

func NewResetGenerator(ttl time.Duration, clock timex.Clock) *ResetGenerator {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &ResetGenerator{ttl: ttl, now: clock}
}

func (g *ResetGenerator) Generate() (ResetToken, error) {
	secret, err := common.MakeRandHexString(resetSecretBytes)
	if err != nil {
		return ResetToken{}, apperr.Wrap(apperr.CodeInternal, err)
	}

	return ResetToken{
		Secret:    secret,
		Digest:    DigestOf(secret),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}

// DigestOf is the hex SHA-256 of secret, the form reset secrets are stored
// and looked up in.
func DigestOf(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
