package signupsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the "error" (or "code") field.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeValidation         = "validation_error"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidPasscode    = "invalid_passcode"
	ErrorCodePasscodeExpired    = "passcode_expired"
	ErrorCodeAlreadyVerified    = "already_verified"
	ErrorCodeTooManyAttempts    = "too_many_attempts"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// APIError is any non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string

	// Details maps field names to messages for validation failures.
	Details map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *APIError) IsValidation() bool {
	return e.Code == ErrorCodeValidation
}

func parseErrorResponse(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Code: errResp.Error, Description: errResp.ErrorDescription}
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &APIError{StatusCode: status, Code: valErr.Code, Description: valErr.Message, Details: valErr.Details}
	}

	return &APIError{
		StatusCode:  status,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}
}
