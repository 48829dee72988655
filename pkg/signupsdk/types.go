package signupsdk

import (
	"time"

	"github.com/aussiebroadwan/signup/pkg/jwtx"
)

// ErrorResponse is the body of every non-validation failure.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse lists every failing field with its message.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// RegisterRequest is the registration form. The service also accepts it
// form-encoded, and phone_number as a JSON number.
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	PhoneNumber          string `json:"phone_number"`
}

// Notification delivery states reported after registration and resend.
const (
	NotificationSent    = "sent"
	NotificationPending = "pending"
	NotificationFailed  = "failed"
)

type RegisterResponse struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`

	// RegistrationToken authorizes verify and resend for this user.
	RegistrationToken string `json:"registration_token"`
	TokenType         string `json:"token_type"`
	ExpiresIn         int    `json:"expires_in"`

	NotificationStatus string `json:"notification_status"`
}

// RegistrationTokenRequest trades credentials for a new registration token
// once the original has expired.
type RegistrationTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegistrationTokenResponse struct {
	UserID            string `json:"user_id"`
	RegistrationToken string `json:"registration_token"`
	TokenType         string `json:"token_type"`
	ExpiresIn         int    `json:"expires_in"`
}

type VerifyPasscodeRequest struct {
	OTP string `json:"otp"`
}

type VerifyPasscodeResponse struct {
	UserID          string    `json:"user_id"`
	PhoneVerifiedAt time.Time `json:"phone_verified_at"`
}

type ResendPasscodeResponse struct {
	NotificationStatus string `json:"notification_status"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is only populated by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse holds the keys registration tokens are signed with.
type JWKSResponse jwtx.JWKS
