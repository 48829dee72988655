package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, phone_number, password_hash, otp,
	otp_expires_at, otp_attempts, phone_verified_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                 domain.User
		expires, verified sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Passcode,
		&expires, &u.PasscodeAttempts, &verified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.PasscodeExpiresAt = nullTimePtr(expires)
	u.PhoneVerifiedAt = nullTimePtr(verified)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(email)))
}

func (r *usersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)`, strings.ToLower(email)).Scan(&exists)
	return exists, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.Passcode,
		timePtrNull(u.PasscodeExpiresAt), u.PasscodeAttempts, timePtrNull(u.PhoneVerifiedAt),
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) MarkPhoneVerified(ctx context.Context, userID string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE users
		SET phone_verified_at = $1, updated_at = $1
		WHERE id = $2 AND phone_verified_at IS NULL`,
		at.UTC(), userID,
	))
}

func (r *usersRepo) ClaimPasscodeAttempt(ctx context.Context, userID string, max int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_attempts = otp_attempts + 1, updated_at = $1
		WHERE id = $2 AND phone_verified_at IS NULL AND otp_attempts < $3`,
		at.UTC(), userID, max,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func timePtrNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
