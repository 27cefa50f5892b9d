package security

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)

	for i := 0; i < 5; i++ {
		plaintext := gofakeit.Password(true, true, true, true, false, 16)

		hash, err := h.Hash(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, hash)
		assert.NoError(t, h.Verify(hash, plaintext))
		assert.ErrorIs(t, h.Verify(hash, plaintext+"x"), bcrypt.ErrMismatchedHashAndPassword)
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("12345678")
	require.NoError(t, err)
	second, err := h.Hash("12345678")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, h.Verify(first, "12345678"))
	assert.NoError(t, h.Verify(second, "12345678"))
}

func TestBcryptHasher_Cost(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"Min cost", bcrypt.MinCost, bcrypt.MinCost},
		{"Zero falls back", 0, bcrypt.DefaultCost},
		{"Too high falls back", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBcryptHasher(tt.cost).cost())
		})
	}

	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash("12345678")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	t.Parallel()
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
