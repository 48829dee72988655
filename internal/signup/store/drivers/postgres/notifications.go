package postgres

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
		n      domain.Notification
		sentAt sql.NullTime
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Channel, &n.Recipient, &n.Body, &n.Status,
		&n.Attempts, &n.LastError, &n.ProviderRef, &n.NextAttemptAt, &sentAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return domain.Notification{}, mapNotFound(err)
	}
	n.SentAt = nullTimePtr(sentAt)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		n.ID, n.UserID, string(n.Channel), n.Recipient, n.Body, string(n.Status),
		n.Attempts, n.LastError, n.ProviderRef, n.NextAttemptAt.UTC(),
		timePtrNull(n.SentAt), n.CreatedAt.UTC(), n.UpdatedAt.UTC(),
	)
	return mapUniqueViolation(err)
}

func (r *notificationsRepo) GetNotificationByID(ctx context.Context, id string) (domain.Notification, error) {
	return scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
}

func (r *notificationsRepo) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return r.list(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *notificationsRepo) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at, id
		LIMIT $2`,
		now.UTC(), limit)
}

func (r *notificationsRepo) ClaimNotification(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET next_attempt_at = $1, attempts = attempts + 1, updated_at = $2
		WHERE id = $3 AND status = 'pending' AND next_attempt_at <= $2`,
		leaseUntil.UTC(), now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *notificationsRepo) MarkNotificationSent(ctx context.Context, id, providerRef string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'sent', provider_ref = $1, last_error = '', sent_at = $2, updated_at = $2
		WHERE id = $3`,
		providerRef, at.UTC(), id))
}

func (r *notificationsRepo) MarkNotificationRetry(ctx context.Context, id, lastError string, nextAttemptAt, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET last_error = $1, next_attempt_at = $2, updated_at = $3
		WHERE id = $4 AND status = 'pending'`,
		lastError, nextAttemptAt.UTC(), at.UTC(), id))
}

func (r *notificationsRepo) MarkNotificationFailed(ctx context.Context, id, lastError string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'failed', last_error = $1, updated_at = $2
		WHERE id = $3`,
		lastError, at.UTC(), id))
}

func (r *notificationsRepo) CountPendingNotifications(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE status = 'pending'`).Scan(&n)
	return n, err
}

func (r *notificationsRepo) DeleteSentNotificationsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE status = 'sent' AND sent_at < $1`, t.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
