package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it so a transaction exposes the
// same surface as the store itself.
type Store interface {
	Users() Users
	Notifications() Notifications

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateUser inserts u and returns ErrAlreadyExists when the email is
	// already registered.
	CreateUser(ctx context.Context, u domain.User) error

	// MarkPhoneVerified stamps phone_verified_at if it is still unset and
	// returns ErrNotFound otherwise.
	MarkPhoneVerified(ctx context.Context, userID string, at time.Time) error

	// ClaimPasscodeAttempt uses up one verification attempt. It reports
	// false when max attempts are already spent or the phone is verified.
	ClaimPasscodeAttempt(ctx context.Context, userID string, max int, at time.Time) (bool, error)
}

type Notifications interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
	GetNotificationByID(ctx context.Context, id string) (domain.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)

	// ListDueNotifications returns pending rows with next_attempt_at <= now,
	// oldest first.
	ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)

	// ClaimNotification leases a due pending row until leaseUntil and counts
	// the attempt. It reports false when another worker got there first or
	// the row is no longer due.
	ClaimNotification(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error)

	MarkNotificationSent(ctx context.Context, id, providerRef string, at time.Time) error
	MarkNotificationRetry(ctx context.Context, id, lastError string, nextAttemptAt, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id, lastError string, at time.Time) error

	CountPendingNotifications(ctx context.Context) (int, error)

	// DeleteSentNotificationsBefore prunes delivered rows sent before t.
	DeleteSentNotificationsBefore(ctx context.Context, t time.Time) (int64, error)
}
