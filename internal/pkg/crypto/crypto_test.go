package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, p, GeneratedPasswordLength)
		for _, c := range p {
			assert.True(t, strings.ContainsRune(passwordChars, c), "unexpected char %q", c)
		}
		assert.False(t, seen[p], "duplicate password generated")
		seen[p] = true
	}
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, s, SecretKeyBytes*2)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", hash)

	assert.NoError(t, h.Compare(hash, "pass1234"))
	assert.True(t, errors.Is(h.Compare(hash, "wrong"), ErrPasswordMismatch))
	assert.True(t, errors.Is(h.Compare("not-a-hash", "pass1234"), ErrPasswordMismatch))
}

func TestNewPasswordHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
}
