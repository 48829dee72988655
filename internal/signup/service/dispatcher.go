package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/aussiebroadwan/signup/internal/signup/metrics"
	"github.com/aussiebroadwan/signup/internal/signup/notify"
	"github.com/aussiebroadwan/signup/internal/signup/store"
)

type DispatcherConfig struct {
	Interval  time.Duration
	BatchSize int

	// MaxAttempts counts sends, including the first.
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// SendTimeout bounds a single provider call.
	SendTimeout time.Duration

	// Retention is how long sent rows are kept. Zero keeps them forever.
	Retention time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = max(30*time.Minute, c.RetryDelay)
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

// lease is how long a claimed row stays invisible to other senders. It
// outlives any send so a row is never delivered twice at once.
func (c DispatcherConfig) lease() time.Duration {
	return 2*c.SendTimeout + 5*time.Second
}

// Dispatcher delivers outbox notifications. Deliver is used inline right
// after a row is written; Start runs a background sweep that picks up rows
// whose inline attempt failed or never happened.
type Dispatcher struct {
	Store    store.Store
	Notifier notify.Notifier
	Logger   *slog.Logger

	cfg DispatcherConfig
	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewDispatcher(st store.Store, n notify.Notifier, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		Store:    st,
		Notifier: n,
		Logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (d *Dispatcher) Config() DispatcherConfig { return d.cfg }

// Start runs the sweep loop in the background until Stop is called.
func (d *Dispatcher) Start() {
	go d.run()
	d.Logger.Info("notification dispatcher started",
		slog.String("driver", d.Notifier.Name()),
		slog.Duration("interval", d.cfg.Interval),
	)
}

// Stop ends the loop and waits for an in-progress sweep to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	<-d.doneCh
	d.Logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-d.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	// Pick up anything left over from before a restart.
	d.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			d.Sweep(ctx)
		case <-d.stopCh:
			return
		}
	}
}

// Sweep delivers one batch of due notifications, prunes old sent rows and
// refreshes the pending gauge. It returns how many rows were sent.
func (d *Dispatcher) Sweep(ctx context.Context) int {
	now := d.now()
	repo := d.Store.Notifications()

	due, err := repo.ListDueNotifications(ctx, now, d.cfg.BatchSize)
	if err != nil {
		d.Logger.Error("failed to list due notifications", slog.Any("error", err))
		return 0
	}

	sent := 0
	for _, n := range due {
		if ctx.Err() != nil {
			break
		}
		status, err := d.Deliver(ctx, n)
		if err != nil {
			d.Logger.Warn("notification delivery failed",
				slog.String("notification_id", n.ID),
				slog.String("status", string(status)),
				slog.Any("error", err),
			)
		}
		if status == domain.NotificationSent {
			sent++
		}
	}

	if d.cfg.Retention > 0 {
		pruned, err := repo.DeleteSentNotificationsBefore(ctx, now.Add(-d.cfg.Retention))
		if err != nil {
			d.Logger.Error("failed to prune sent notifications", slog.Any("error", err))
		} else if pruned > 0 {
			d.Logger.Debug("pruned sent notifications", slog.Int64("count", pruned))
		}
	}

	if pending, err := repo.CountPendingNotifications(ctx); err != nil {
		d.Logger.Error("failed to count pending notifications", slog.Any("error", err))
	} else {
		metrics.SetOutboxPending(pending)
	}

	if len(due) > 0 {
		d.Logger.Info("notification sweep completed",
			slog.Int("due", len(due)),
			slog.Int("sent", sent),
		)
	}
	return sent
}

// Deliver claims n, sends it and records the result. The returned status
// is the row's state afterwards; pending with a nil error means another
// sender holds the claim. A non-nil error is the provider failure.
func (d *Dispatcher) Deliver(ctx context.Context, n domain.Notification) (domain.NotificationStatus, error) {
	repo := d.Store.Notifications()

	now := d.now()
	claimed, err := repo.ClaimNotification(ctx, n.ID, now, now.Add(d.cfg.lease()))
	if err != nil {
		return domain.NotificationPending, fmt.Errorf("claim notification: %w", err)
	}
	if !claimed {
		return domain.NotificationPending, nil
	}
	attempt := n.Attempts + 1

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	start := time.Now()
	rcpt, sendErr := d.Notifier.Send(sendCtx, notify.Message{
		ID:        n.ID,
		UserID:    n.UserID,
		Channel:   n.Channel,
		Recipient: n.Recipient,
		Body:      n.Body,
	})
	elapsed := time.Since(start)
	cancel()

	// Record the outcome even if the caller has gone away.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelRecord()

	driver, channel := d.Notifier.Name(), string(n.Channel)
	at := d.now()

	if sendErr == nil {
		metrics.RecordNotificationSent(driver, channel, elapsed)
		if err := repo.MarkNotificationSent(recordCtx, n.ID, rcpt.ProviderRef, at); err != nil {
			// The provider has the message; the lease expiring would resend it.
			d.Logger.Error("failed to record sent notification",
				slog.String("notification_id", n.ID),
				slog.String("provider_ref", rcpt.ProviderRef),
				slog.Any("error", err),
			)
		}
		return domain.NotificationSent, nil
	}

	final := notify.IsPermanent(sendErr) || attempt >= d.cfg.MaxAttempts
	metrics.RecordNotificationFailed(driver, channel, final, elapsed)

	if final {
		if err := repo.MarkNotificationFailed(recordCtx, n.ID, sendErr.Error(), at); err != nil {
			d.Logger.Error("failed to record failed notification",
				slog.String("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
		return domain.NotificationFailed, sendErr
	}

	next := at.Add(d.cfg.backoff(attempt))
	if err := repo.MarkNotificationRetry(recordCtx, n.ID, sendErr.Error(), next, at); err != nil {
		d.Logger.Error("failed to schedule notification retry",
			slog.String("notification_id", n.ID),
			slog.Any("error", err),
		)
	}
	return domain.NotificationPending, sendErr
}

// backoff doubles RetryDelay for each attempt already made, up to
// MaxRetryDelay.
func (c DispatcherConfig) backoff(attempt int) time.Duration {
	d := c.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.MaxRetryDelay {
			return c.MaxRetryDelay
		}
	}
	return min(d, c.MaxRetryDelay)
}
