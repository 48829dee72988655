package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string // stored lowercased
	PhoneNumber  string // digits only
	PasswordHash string // argon2id PHC string

	// Passcode is the four digit registration code. It is set once at
	// creation and reused by resends.
	Passcode          int
	PasscodeExpiresAt *time.Time // nil when codes never expire
	PasscodeAttempts  int        // verification attempts used so far
	PhoneVerifiedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) PhoneVerified() bool { return u.PhoneVerifiedAt != nil }

// PasscodeExhausted reports whether max verification attempts have been used.
func (u User) PasscodeExhausted(max int) bool { return u.PasscodeAttempts >= max }

// PasscodeExpired reports whether the passcode can no longer be used at now.
func (u User) PasscodeExpired(now time.Time) bool {
	return u.PasscodeExpiresAt != nil && !now.Before(*u.PasscodeExpiresAt)
}
