package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/aussiebroadwan/signup/internal/signup/store"
	"github.com/aussiebroadwan/signup/pkg/jwtx"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

// TokenAudience is the audience of every registration token.
const TokenAudience = "signup"

// TokenIssuer mints the short lived token that lets a newly registered user
// verify or resend their passcode.
type TokenIssuer struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (t *TokenIssuer) Issue(u domain.User) (token string, expiresIn time.Duration, err error) {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultRegistrationTokenTTL
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	claims := jwtx.NewRegistrationClaims(u.ID, u.Name, t.Issuer, []string{TokenAudience}, ttl, now().UTC())
	token, err = t.Signer.Sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, ttl, nil
}

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ReissueToken hands out a fresh registration token to a user who has not
// verified their phone yet, for when the one from Register has expired.
func (s *RegistrationService) ReissueToken(ctx context.Context, email, password string) (Registration, error) {
	log := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Registration{}, ErrInvalidCredentials
		}
		return Registration{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		log.Info("registration token refused", slog.String("user_id", u.ID))
		return Registration{}, ErrInvalidCredentials
	}
	if u.PhoneVerified() {
		return Registration{}, ErrAlreadyVerified
	}
	if s.Tokens == nil {
		return Registration{}, errors.New("registration tokens are not configured")
	}

	token, ttl, err := s.Tokens.Issue(u)
	if err != nil {
		return Registration{}, fmt.Errorf("issue registration token: %w", err)
	}

	log.Info("registration token reissued", slog.String("user_id", u.ID))
	return Registration{User: u, Token: token, TokenExpiresIn: ttl}, nil
}
