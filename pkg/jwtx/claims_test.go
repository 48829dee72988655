package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "signup"}}

	require.NoError(t, c.ValidateIssuer("signup"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("auth"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"signup", "mobile"}}}

	require.NoError(t, c.ValidateAudience([]string{"mobile"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewRegistrationClaims("u", "", "", nil, time.Minute, now)

	require.NoError(t, c.ValidateExpiry(now, 0))
	require.ErrorIs(t, c.ValidateExpiry(now.Add(2*time.Minute), 0), jwtx.ErrExpired)
	require.NoError(t, c.ValidateExpiry(now.Add(2*time.Minute), 2*time.Minute))
	require.ErrorIs(t, c.ValidateExpiry(now.Add(-time.Minute), 0), jwtx.ErrNotYetValid)
}
