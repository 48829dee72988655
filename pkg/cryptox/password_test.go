package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/signup/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_Hash(t *testing.T) {
	h := cryptox.NewPasswordHasher("test-pepper")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"unicode password", "пароль密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)
			require.NotContains(t, hash, tt.password)

			require.NoError(t, h.Verify(tt.password, hash))
		})
	}
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	h := cryptox.NewPasswordHasher("")

	a, err := h.Hash("samepassword")
	require.NoError(t, err)
	b, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestPasswordHasher_Verify(t *testing.T) {
	h := cryptox.NewPasswordHasher("pepper-a")
	hash, err := h.Hash("secret123")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		require.ErrorIs(t, h.Verify("secret124", hash), cryptox.ErrPasswordMismatch)
	})

	t.Run("wrong pepper", func(t *testing.T) {
		other := cryptox.NewPasswordHasher("pepper-b")
		require.ErrorIs(t, other.Verify("secret123", hash), cryptox.ErrPasswordMismatch)
	})

	t.Run("malformed hashes", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"plaintext",
			"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
		} {
			require.ErrorIs(t, h.Verify("secret123", bad), cryptox.ErrInvalidHash, bad)
		}
	})
}
