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
	"github.com/aussiebroadwan/signup/pkg/idx"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

// PasswordHasher produces the stored form of a password and checks
// submissions against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) error
}

// Registration is the outcome of a successful Register call.
type Registration struct {
	User domain.User

	// Token is empty if signing failed after the user was committed.
	Token          string
	TokenExpiresIn time.Duration

	NotificationStatus domain.NotificationStatus
}

type RegistrationService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens *TokenIssuer

	// Dispatcher delivers the passcode right after commit. When nil the
	// notification stays pending for the background sweep.
	Dispatcher *Dispatcher

	Channel domain.Channel

	// PasscodeTTL of zero means passcodes never expire.
	PasscodeTTL time.Duration

	// Passcodes defaults to cryptox.GeneratePasscode.
	Passcodes func() (int, error)
	Now       func() time.Time
}

// Register validates in, creates the user together with its passcode
// notification and then attempts delivery. Delivery problems never fail
// the call once the user is committed.
func (s *RegistrationService) Register(ctx context.Context, in RegistrationInput) (Registration, error) {
	log := slogx.FromContext(ctx)
	in = in.Normalize()

	if err := ValidateRegistration(ctx, s.Store.Users(), in); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			if errors.Is(err, ErrEmailTaken) {
				metrics.RecordRegistration(metrics.OutcomeEmailTaken)
			} else {
				metrics.RecordRegistration(metrics.OutcomeInvalid)
			}
			log.Debug("registration rejected", slog.Any("fields", verr.Fields))
			return Registration{}, err
		}
		metrics.RecordRegistration(metrics.OutcomeError)
		log.Error("registration validation failed", slog.Any("error", err))
		return Registration{}, err
	}

	passcode, err := s.generatePasscode()
	if err != nil {
		metrics.RecordRegistration(metrics.OutcomeError)
		return Registration{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		metrics.RecordRegistration(metrics.OutcomeError)
		return Registration{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Name:         in.Name,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		Passcode:     passcode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.PasscodeTTL > 0 {
		exp := now.Add(s.PasscodeTTL)
		user.PasscodeExpiresAt = &exp
	}

	notification := newPasscodeNotification(user, s.channel(), now)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Notifications().CreateNotification(ctx, notification)
	})
	if err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, store.ErrAlreadyExists) {
			metrics.RecordRegistration(metrics.OutcomeEmailTaken)
			log.Info("registration lost email uniqueness race")
			return Registration{}, emailTakenError()
		}
		metrics.RecordRegistration(metrics.OutcomeError)
		log.Error("failed to persist registration", slog.Any("error", err))
		return Registration{}, fmt.Errorf("persist registration: %w", err)
	}

	metrics.RecordRegistration(metrics.OutcomeCreated)
	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("phone_number", slogx.MaskPhone(user.PhoneNumber)),
	)

	reg := Registration{User: user, NotificationStatus: domain.NotificationPending}

	if s.Tokens != nil {
		token, ttl, err := s.Tokens.Issue(user)
		if err != nil {
			log.Error("failed to issue registration token",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		} else {
			reg.Token, reg.TokenExpiresIn = token, ttl
		}
	}

	if s.Dispatcher != nil {
		status, err := s.Dispatcher.Deliver(ctx, notification)
		if err != nil {
			log.Warn("inline passcode delivery failed",
				slog.String("notification_id", notification.ID),
				slog.String("status", string(status)),
				slog.Any("error", err),
			)
		}
		reg.NotificationStatus = status
	}

	return reg, nil
}

func (s *RegistrationService) generatePasscode() (int, error) {
	if s.Passcodes != nil {
		return s.Passcodes()
	}
	return cryptox.GeneratePasscode()
}

func (s *RegistrationService) channel() domain.Channel {
	if s.Channel == "" {
		return domain.ChannelWhatsApp
	}
	return s.Channel
}

func (s *RegistrationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func newPasscodeNotification(u domain.User, ch domain.Channel, now time.Time) domain.Notification {
	return domain.Notification{
		ID:            idx.NewAt(now).String(),
		UserID:        u.ID,
		Channel:       ch,
		Recipient:     u.PhoneNumber,
		Body:          domain.PasscodeMessage(u.Passcode),
		Status:        domain.NotificationPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
