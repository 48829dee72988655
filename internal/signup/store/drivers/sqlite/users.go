package sqlite

import (
	"context"
	"database/sql"
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
		u                    domain.User
		expires, verified    sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Passcode,
		&expires, &u.PasscodeAttempts, &verified, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.PasscodeExpiresAt = fromNullMillis(expires)
	u.PhoneVerifiedAt = fromNullMillis(verified)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	return exists, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.Passcode,
		toNullMillis(u.PasscodeExpiresAt), u.PasscodeAttempts, toNullMillis(u.PhoneVerifiedAt),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) MarkPhoneVerified(ctx context.Context, userID string, at time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, `
		UPDATE users
		SET phone_verified_at = ?, updated_at = ?
		WHERE id = ? AND phone_verified_at IS NULL`,
		toMillis(at), toMillis(at), userID,
	))
}

func (r *usersRepo) ClaimPasscodeAttempt(ctx context.Context, userID string, max int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_attempts = otp_attempts + 1, updated_at = ?
		WHERE id = ? AND phone_verified_at IS NULL AND otp_attempts < ?`,
		toMillis(at), userID, max,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
