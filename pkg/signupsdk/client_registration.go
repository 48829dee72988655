package signupsdk

import (
	"context"
	"net/http"
)

// Register creates a user and triggers delivery of their passcode.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/registrations", "", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPasscode confirms the passcode sent to the registered phone.
func (c *SDKClient) VerifyPasscode(ctx context.Context, registrationToken, otp string) (*VerifyPasscodeResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/registrations/verify", registrationToken, VerifyPasscodeRequest{OTP: otp})
	if err != nil {
		return nil, err
	}

	var out VerifyPasscodeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendPasscode queues the existing passcode for delivery again.
func (c *SDKClient) ResendPasscode(ctx context.Context, registrationToken string) (*ResendPasscodeResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/registrations/resend", registrationToken, nil)
	if err != nil {
		return nil, err
	}

	var out ResendPasscodeResponse
	if err := decodeJSON(resp, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestRegistrationToken issues a new registration token for an
// unverified user.
func (c *SDKClient) RequestRegistrationToken(ctx context.Context, email, password string) (*RegistrationTokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/registrations/token", "", RegistrationTokenRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var out RegistrationTokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
