package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/aussiebroadwan/signup/internal/signup/notify"
	"github.com/aussiebroadwan/signup/internal/signup/store"
	"github.com/stretchr/testify/require"
)

func TestDispatcherConfig_Backoff(t *testing.T) {
	t.Parallel()

	cfg := DispatcherConfig{RetryDelay: 10 * time.Second, MaxRetryDelay: time.Minute}.withDefaults()

	require.Equal(t, 10*time.Second, cfg.backoff(1))
	require.Equal(t, 20*time.Second, cfg.backoff(2))
	require.Equal(t, 40*time.Second, cfg.backoff(3))
	require.Equal(t, time.Minute, cfg.backoff(4))
	require.Equal(t, time.Minute, cfg.backoff(40))
}

func TestDispatcherConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := DispatcherConfig{}.withDefaults()
	require.Equal(t, 5, cfg.MaxAttempts)
	require.Equal(t, 20, cfg.BatchSize)
	require.GreaterOrEqual(t, cfg.MaxRetryDelay, cfg.RetryDelay)
	require.Greater(t, cfg.lease(), cfg.SendTimeout)
}

func TestDispatcher_RetriesUntilSent(t *testing.T) {
	f := newFixture(t, DispatcherConfig{RetryDelay: time.Minute, MaxRetryDelay: time.Hour})
	f.notifier.errs = []error{errors.New("timeout"), errors.New("timeout")}
	ctx := context.Background()

	reg, err := f.reg.Register(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, domain.NotificationPending, reg.NotificationStatus)

	// Not due yet.
	require.Zero(t, f.dispatcher.Sweep(ctx))
	require.Len(t, f.notifier.messages(), 1)

	// Second attempt fails, third is due two minutes later.
	f.clock.Advance(time.Minute)
	require.Zero(t, f.dispatcher.Sweep(ctx))
	require.Len(t, f.notifier.messages(), 2)

	f.clock.Advance(time.Minute)
	require.Zero(t, f.dispatcher.Sweep(ctx))

	f.clock.Advance(time.Minute)
	require.Equal(t, 1, f.dispatcher.Sweep(ctx))

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, domain.NotificationSent, rows[0].Status)
	require.Equal(t, 3, rows[0].Attempts)
	require.NotNil(t, rows[0].SentAt)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, DispatcherConfig{MaxAttempts: 2, RetryDelay: time.Minute})
	f.notifier.errs = []error{errors.New("down"), errors.New("still down")}
	ctx := context.Background()

	reg, err := f.reg.Register(ctx, validInput())
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.Zero(t, f.dispatcher.Sweep(ctx))

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationFailed, rows[0].Status)
	require.Equal(t, "still down", rows[0].LastError)

	// Failed rows are never picked up again.
	f.clock.Advance(time.Hour)
	require.Zero(t, f.dispatcher.Sweep(ctx))
	require.Len(t, f.notifier.messages(), 2)
}

func TestDispatcher_PermanentErrorFailsImmediately(t *testing.T) {
	f := newFixture(t, DispatcherConfig{MaxAttempts: 5})
	f.reg.Dispatcher = nil
	f.notifier.errs = []error{notify.Permanent(errors.New("recipient blocked"))}
	ctx := context.Background()

	reg, err := f.reg.Register(ctx, validInput())
	require.NoError(t, err)

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, reg.User.ID)
	require.NoError(t, err)

	status, err := f.dispatcher.Deliver(ctx, rows[0])
	require.Error(t, err)
	require.True(t, notify.IsPermanent(err))
	require.Equal(t, domain.NotificationFailed, status)
}

func TestDispatcher_SkipsClaimedRow(t *testing.T) {
	f := newFixture(t, DispatcherConfig{})
	f.reg.Dispatcher = nil
	ctx := context.Background()

	reg, err := f.reg.Register(ctx, validInput())
	require.NoError(t, err)

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, reg.User.ID)
	require.NoError(t, err)

	now := f.clock.Now()
	ok, err := f.store.Notifications().ClaimNotification(ctx, rows[0].ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	status, err := f.dispatcher.Deliver(ctx, rows[0])
	require.NoError(t, err)
	require.Equal(t, domain.NotificationPending, status)
	require.Empty(t, f.notifier.messages())
}

func TestDispatcher_PrunesSentRows(t *testing.T) {
	f := newFixture(t, DispatcherConfig{Retention: 24 * time.Hour})
	ctx := context.Background()

	reg, err := f.reg.Register(ctx, validInput())
	require.NoError(t, err)

	rows, err := f.store.Notifications().ListNotificationsByUser(ctx, reg.User.ID)
	require.NoError(t, err)
	id := rows[0].ID

	f.dispatcher.Sweep(ctx)
	_, err = f.store.Notifications().GetNotificationByID(ctx, id)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	f.dispatcher.Sweep(ctx)
	_, err = f.store.Notifications().GetNotificationByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDispatcher_StartStop(t *testing.T) {
	f := newFixture(t, DispatcherConfig{Interval: 10 * time.Millisecond})
	f.reg.Dispatcher = nil

	_, err := f.reg.Register(context.Background(), validInput())
	require.NoError(t, err)

	f.dispatcher.Start()
	require.Eventually(t, func() bool {
		return len(f.notifier.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	f.dispatcher.Stop()
	f.dispatcher.Stop()
}
