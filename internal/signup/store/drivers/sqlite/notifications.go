package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
)

type notificationsRepo struct {
	db dbtx
}

const notificationColumns = `id, user_id, channel, recipient, body, status,
	attempts, last_error, provider_ref, next_attempt_at, sent_at, created_at, updated_at`

func scanNotification(row interface{ Scan(...any) error }) (domain.Notification, error) {
	var (
		n                      domain.Notification
		nextAttempt, createdAt int64
		updatedAt              int64
		sentAt                 sql.NullInt64
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Channel, &n.Recipient, &n.Body, &n.Status,
		&n.Attempts, &n.LastError, &n.ProviderRef, &nextAttempt, &sentAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Notification{}, mapNotFound(err)
	}

	n.NextAttemptAt = fromMillis(nextAttempt)
	n.SentAt = fromNullMillis(sentAt)
	n.CreatedAt = fromMillis(createdAt)
	n.UpdatedAt = fromMillis(updatedAt)
	return n, nil
}

func (r *notificationsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationsRepo) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Channel, n.Recipient, n.Body, n.Status,
		n.Attempts, n.LastError, n.ProviderRef, toMillis(n.NextAttemptAt),
		toNullMillis(n.SentAt), toMillis(n.CreatedAt), toMillis(n.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *notificationsRepo) GetNotificationByID(ctx context.Context, id string) (domain.Notification, error) {
	return scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
}

func (r *notificationsRepo) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return r.list(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY id`, userID)
}

func (r *notificationsRepo) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`,
		toMillis(now), limit)
}

func (r *notificationsRepo) ClaimNotification(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET next_attempt_at = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND status = 'pending' AND next_attempt_at <= ?`,
		toMillis(leaseUntil), toMillis(now), id, toMillis(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *notificationsRepo) MarkNotificationSent(ctx context.Context, id, providerRef string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'sent', provider_ref = ?, last_error = '', sent_at = ?, updated_at = ?
		WHERE id = ?`,
		providerRef, toMillis(at), toMillis(at), id))
}

func (r *notificationsRepo) MarkNotificationRetry(ctx context.Context, id, lastError string, nextAttemptAt, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		lastError, toMillis(nextAttemptAt), toMillis(at), id))
}

func (r *notificationsRepo) MarkNotificationFailed(ctx context.Context, id, lastError string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'failed', last_error = ?, updated_at = ?
		WHERE id = ?`,
		lastError, toMillis(at), id))
}

func (r *notificationsRepo) CountPendingNotifications(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE status = 'pending'`).Scan(&n)
	return n, err
}

func (r *notificationsRepo) DeleteSentNotificationsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE status = 'sent' AND sent_at < ?`, toMillis(t))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
