package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	d1, err := h.Hash("p1")
	require.NoError(t, err)
	d2, err := h.Hash("p1")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "salt must differ per call")

	ok, err := h.Verify("p1", d1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("p2", d1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_UsesConfiguredCost(t *testing.T) {
	h := NewHasher(bcrypt.MinCost + 1)

	d, err := h.Hash("secret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(d))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestHasher_EmptyPlaintext(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	assert.ErrorIs(t, err, apperr.ErrMissingInput)
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, d := range []string{"", "plain-text", "$2a$xx$notadigest"} {
		ok, err := h.Verify("p1", d)
		assert.False(t, ok)
		assert.ErrorIs(t, err, apperr.ErrInvalidDigestFormat, "digest %q", d)
	}
}
