package jwtx_test

import (
	"testing"

	"github.com/aussiebroadwan/signup/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestKeySet_PublicJWKSRoundTrip(t *testing.T) {
	a := newSigner(t, "b-key")
	b := newSigner(t, "a-key")

	ks := jwtx.NewKeySet()
	ks.AddSigner(a)
	ks.AddSigner(b)

	jwks := ks.PublicJWKS()
	require.Len(t, jwks.Keys, 2)
	require.Equal(t, "a-key", jwks.Keys[0].Kid)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)
	require.Equal(t, "EdDSA", jwks.Keys[0].Alg)

	// A consumer rebuilding the set from the published JWKS gets the same keys.
	remote := jwtx.NewKeySet()
	for _, k := range jwks.Keys {
		require.NoError(t, remote.AddJWK(k))
	}
	got, err := remote.Get("b-key")
	require.NoError(t, err)
	want, err := ks.Get("b-key")
	require.NoError(t, err)
	require.True(t, want.Equal(got))
}

func TestJWK_PublicKeyRejects(t *testing.T) {
	tests := []struct {
		name string
		jwk  jwtx.JWK
	}{
		{"rsa", jwtx.JWK{Kty: "RSA", Kid: "k"}},
		{"missing kid", jwtx.JWK{Kty: "OKP", Crv: "Ed25519", X: "AAAA"}},
		{"bad base64", jwtx.JWK{Kty: "OKP", Crv: "Ed25519", Kid: "k", X: "!!"}},
		{"short key", jwtx.JWK{Kty: "OKP", Crv: "Ed25519", Kid: "k", X: "AAAA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.jwk.PublicKey()
			require.Error(t, err)
		})
	}
}

func TestKeySet_Empty(t *testing.T) {
	ks := jwtx.NewKeySet()
	require.False(t, ks.IsReady())
	_, err := ks.Get("missing")
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}
