package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/aussiebroadwan/signup/internal/signup/metrics"
	"github.com/aussiebroadwan/signup/internal/signup/store"
	"github.com/aussiebroadwan/signup/pkg/cryptox"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyVerified  = errors.New("phone number already verified")
	ErrPasscodeExpired  = errors.New("passcode expired")
	ErrPasscodeMismatch = errors.New("passcode does not match")
	ErrTooManyAttempts  = errors.New("too many passcode attempts")
)

// DefaultPasscodeMaxAttempts bounds guesses against one four digit code.
const DefaultPasscodeMaxAttempts = 5

type VerificationService struct {
	Store      store.Store
	Dispatcher *Dispatcher
	Channel    domain.Channel

	// MaxAttempts is the number of Verify calls a passcode survives,
	// DefaultPasscodeMaxAttempts when zero.
	MaxAttempts int

	Now func() time.Time
}

// Verify checks otp against the user's passcode and marks the phone number
// verified.
func (s *VerificationService) Verify(ctx context.Context, userID, otp string) (domain.User, error) {
	log := slogx.FromContext(ctx).With(slog.String("user_id", userID))

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	switch {
	case u.PhoneVerified():
		metrics.RecordVerification("already_verified")
		return domain.User{}, ErrAlreadyVerified
	case u.PasscodeExpired(now):
		metrics.RecordVerification("expired")
		return domain.User{}, ErrPasscodeExpired
	case u.PasscodeExhausted(s.maxAttempts()):
		metrics.RecordVerification("locked")
		return domain.User{}, ErrTooManyAttempts
	}

	// The attempt is spent before comparing so concurrent guesses cannot
	// exceed the limit.
	claimed, err := s.Store.Users().ClaimPasscodeAttempt(ctx, u.ID, s.maxAttempts(), now)
	if err != nil {
		log.Error("failed to record passcode attempt", slog.Any("error", err))
		return domain.User{}, fmt.Errorf("record passcode attempt: %w", err)
	}
	if !claimed {
		return domain.User{}, s.unclaimedAttempt(ctx, u.ID)
	}
	u.PasscodeAttempts++

	if !cryptox.PasscodeEqual(u.Passcode, otp) {
		metrics.RecordVerification("mismatch")
		log.Info("passcode mismatch", slog.Int("attempts_left", s.maxAttempts()-u.PasscodeAttempts))
		return domain.User{}, ErrPasscodeMismatch
	}

	if err := s.Store.Users().MarkPhoneVerified(ctx, u.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent request verified first.
			metrics.RecordVerification("already_verified")
			return domain.User{}, ErrAlreadyVerified
		}
		log.Error("failed to mark phone verified", slog.Any("error", err))
		return domain.User{}, fmt.Errorf("mark phone verified: %w", err)
	}

	metrics.RecordVerification("verified")
	log.Info("phone number verified")

	u.PhoneVerifiedAt = &now
	u.UpdatedAt = now
	return u, nil
}

// Resend queues the user's existing passcode for delivery again and tries
// to send it straight away.
func (s *VerificationService) Resend(ctx context.Context, userID string) (domain.NotificationStatus, error) {
	log := slogx.FromContext(ctx).With(slog.String("user_id", userID))

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.now()
	if u.PhoneVerified() {
		return "", ErrAlreadyVerified
	}
	if u.PasscodeExpired(now) {
		return "", ErrPasscodeExpired
	}
	if u.PasscodeExhausted(s.maxAttempts()) {
		return "", ErrTooManyAttempts
	}

	ch := s.Channel
	if ch == "" {
		ch = domain.ChannelWhatsApp
	}

	n := newPasscodeNotification(u, ch, now)
	if err := s.Store.Notifications().CreateNotification(ctx, n); err != nil {
		log.Error("failed to queue passcode resend", slog.Any("error", err))
		return "", fmt.Errorf("queue passcode resend: %w", err)
	}

	log.Info("passcode resend queued", slog.String("notification_id", n.ID))

	if s.Dispatcher == nil {
		return domain.NotificationPending, nil
	}

	status, err := s.Dispatcher.Deliver(ctx, n)
	if err != nil {
		log.Warn("inline passcode resend failed",
			slog.String("notification_id", n.ID),
			slog.Any("error", err),
		)
	}
	return status, nil
}

// unclaimedAttempt explains why ClaimPasscodeAttempt refused: either a
// concurrent request verified the phone or the attempts ran out.
func (s *VerificationService) unclaimedAttempt(ctx context.Context, userID string) error {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.PhoneVerified() {
		metrics.RecordVerification("already_verified")
		return ErrAlreadyVerified
	}
	metrics.RecordVerification("locked")
	return ErrTooManyAttempts
}

func (s *VerificationService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultPasscodeMaxAttempts
}

func (s *VerificationService) loadUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
