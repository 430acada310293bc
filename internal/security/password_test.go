package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	// lowest accepted cost keeps the suite fast
	return &Hasher{cost: bcrypt.MinCost}
}

func TestHasher_RoundTrip(t *testing.T) {
	h := newTestHasher()

	for _, pw := range []string{"longenough1", "p@ss w0rd with spaces", "ünïcødé-pass"} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)

		assert.NotEqual(t, pw, hash)
		assert.True(t, h.Verify(pw, hash), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"x", hash))
	}
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h := newTestHasher()

	a, err := h.Hash("longenough1")
	require.NoError(t, err)
	b, err := h.Hash("longenough1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("longenough1", a))
	assert.True(t, h.Verify("longenough1", b))
}

func TestHasher_FailsClosed(t *testing.T) {
	h := newTestHasher()

	assert.False(t, h.Verify("anything", ""))
	assert.False(t, h.Verify("anything", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("", "$2a$10$short"))
}

func TestHasher_RejectsEmptyPassword(t *testing.T) {
	_, err := newTestHasher().Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, DefaultCost, NewHasher(99).cost)
	assert.Equal(t, 10, NewHasher(10).cost)
}

func TestHasher_RejectsPasswordOverByteLimit(t *testing.T) {
	h := newTestHasher()

	// 40 runes, 80 bytes
	_, err := h.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestHasher_DummyHashUsesHasherCost(t *testing.T) {
	h := NewHasher(bcrypt.MinCost + 1)

	cost, err := bcrypt.Cost(h.dummyHash())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	h.Burn("whatever")
}
