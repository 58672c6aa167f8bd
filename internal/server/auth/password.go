package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
)

// Hasher stores passwords as bcrypt digests with a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash returns a salted digest of plaintext; hashing the same input twice
// yields different digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", &apperr.Error{Code: apperr.CodeMissingInput, Message: "password is required"}
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err)
	}

	return string(b), nil
}

// Verify reports whether plaintext matches digest. A mismatch is (false, nil);
// an error is returned only when digest is not a bcrypt digest.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperr.Wrap(apperr.CodeInvalidDigestFormat, err)
	}
}
