package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/stretchr/testify/require"
)

func registerWithPasscode(t *testing.T, f *fixture, code int) domain.User {
	t.Helper()
	f.reg.Passcodes = func() (int, error) { return code, nil }

	reg, err := f.reg.Register(context.Background(), validInput())
	require.NoError(t, err)
	return reg.User
}

func TestVerify(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	ctx := context.Background()
	u := registerWithPasscode(t, f, 4821)

	_, err := f.verify.Verify(ctx, u.ID, "1234")
	require.ErrorIs(t, err, ErrPasscodeMismatch)

	_, err = f.verify.Verify(ctx, u.ID, "04821")
	require.ErrorIs(t, err, ErrPasscodeMismatch)

	verified, err := f.verify.Verify(ctx, u.ID, "4821")
	require.NoError(t, err)
	require.NotNil(t, verified.PhoneVerifiedAt)
	require.Equal(t, f.clock.Now(), *verified.PhoneVerifiedAt)

	stored, err := f.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.PhoneVerified())

	_, err = f.verify.Verify(ctx, u.ID, "4821")
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	f.reg.PasscodeTTL = 10 * time.Minute
	ctx := context.Background()
	u := registerWithPasscode(t, f, 4821)

	f.clock.Advance(10 * time.Minute)
	_, err := f.verify.Verify(ctx, u.ID, "4821")
	require.ErrorIs(t, err, ErrPasscodeExpired)

	_, err = f.verify.Resend(ctx, u.ID)
	require.ErrorIs(t, err, ErrPasscodeExpired)
}

func TestVerify_UnknownUser(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})

	_, err := f.verify.Verify(context.Background(), "01JZZZZZZZZZZZZZZZZZZZZZZZ", "1234")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.verify.Resend(context.Background(), "01JZZZZZZZZZZZZZZZZZZZZZZZ")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestResend(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	ctx := context.Background()
	u := registerWithPasscode(t, f, 7310)

	status, err := f.verify.Resend(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationSent, status)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, msgs[0].Body, msgs[1].Body)
	require.Equal(t, "Your registration pin code is 7310", msgs[1].Body)

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, err = f.verify.Verify(ctx, u.ID, "7310")
	require.NoError(t, err)

	_, err = f.verify.Resend(ctx, u.ID)
	require.ErrorIs(t, err, ErrAlreadyVerified)
	require.Len(t, f.notifier.messages(), 2)
}

func TestVerify_GuessingLocksOut(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	f.verify.MaxAttempts = 3
	ctx := context.Background()
	u := registerWithPasscode(t, f, 5477)

	var mismatches, locked int
	for code := 1000; code <= 9999; code++ {
		_, err := f.verify.Verify(ctx, u.ID, strconv.Itoa(code))
		switch {
		case errors.Is(err, ErrPasscodeMismatch):
			mismatches++
		case errors.Is(err, ErrTooManyAttempts):
			locked++
		default:
			t.Fatalf("code %d: unexpected result %v", code, err)
		}
	}
	require.Equal(t, 3, mismatches)
	require.Equal(t, 9000-3, locked)

	stored, err := f.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, stored.PhoneVerified())
	require.Equal(t, 3, stored.PasscodeAttempts)

	_, err = f.verify.Resend(ctx, u.ID)
	require.ErrorIs(t, err, ErrTooManyAttempts)
	require.Len(t, f.notifier.messages(), 1)
}

func TestVerify_CorrectCodeWithinLimit(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	ctx := context.Background()
	u := registerWithPasscode(t, f, 4821)

	for range DefaultPasscodeMaxAttempts - 1 {
		_, err := f.verify.Verify(ctx, u.ID, "1111")
		require.ErrorIs(t, err, ErrPasscodeMismatch)
	}

	verified, err := f.verify.Verify(ctx, u.ID, "4821")
	require.NoError(t, err)
	require.NotNil(t, verified.PhoneVerifiedAt)
}

func TestVerify_ConcurrentGuessesRespectLimit(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	f.verify.MaxAttempts = 4
	ctx := context.Background()
	u := registerWithPasscode(t, f, 4821)

	var (
		wg                 sync.WaitGroup
		mu                 sync.Mutex
		mismatches, locked int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verify.Verify(ctx, u.ID, "1111")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrPasscodeMismatch):
				mismatches++
			case errors.Is(err, ErrTooManyAttempts):
				locked++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 4, mismatches)
	require.Equal(t, 16, locked)
}
