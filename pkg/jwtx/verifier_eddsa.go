package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrPurpose     = errors.New("jwtx: token purpose mismatch")
)

// EdDSAVerifier checks Ed25519 signatures against a KeySet and then
// enforces issuer, audience, expiry and purpose.
type EdDSAVerifier struct {
	keys    *KeySet
	issuer  string
	aud     []string
	purpose string
	leeway  time.Duration
	now     func() time.Time
}

func NewVerifierEdDSA(keys *KeySet, issuer string, aud []string, purpose string) *EdDSAVerifier {
	return &EdDSAVerifier{
		keys:    keys,
		issuer:  issuer,
		aud:     aud,
		purpose: purpose,
		leeway:  30 * time.Second,
		now:     time.Now,
	}
}

func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		// Time based checks are done below with our own clock.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
		}
		return v.keys.Get(kid)
	})
	if err != nil {
		if errors.Is(err, ErrUnknownKID) {
			return Claims{}, ErrUnknownKID
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(v.now().UTC(), v.leeway); err != nil {
		return Claims{}, err
	}
	if v.purpose != "" {
		if err := claims.ValidatePurpose(v.purpose); err != nil {
			return Claims{}, err
		}
	}
	return *claims, nil
}
