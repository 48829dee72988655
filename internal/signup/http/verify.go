package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/signupsdk"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

type VerifyHandler struct {
	VerificationService *service.VerificationService
}

// ServeHTTP godoc
//
//	@Summary		Verify passcode
//	@Description	Confirm the phone number with the passcode sent at registration.
//	@Tags			Registration
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		signupsdk.VerifyPasscodeRequest		true	"Passcode"
//	@Success		200		{object}	signupsdk.VerifyPasscodeResponse	"Phone verified"
//	@Failure		400		{object}	signupsdk.ErrorResponse				"invalid_passcode or passcode_expired"
//	@Failure		401		{object}	signupsdk.ErrorResponse				"Missing or invalid registration token"
//	@Failure		404		{object}	signupsdk.ErrorResponse				"User no longer exists"
//	@Failure		409		{object}	signupsdk.ErrorResponse				"Already verified"
//	@Failure		422		{object}	signupsdk.ValidationErrorResponse	"otp missing"
//	@Failure		429		{object}	signupsdk.ErrorResponse				"Rate limited, or too_many_attempts once the passcode is locked"
//	@Router			/v1/registrations/verify [post].
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, signupsdk.ErrorCodeInvalidToken, "missing subject")
		return
	}

	var body struct {
		OTP flexString `json:"otp"`
	}
	err := decodeBody(w, r, &body, func(get func(string) string) {
		body.OTP = flexString(get("otp"))
	})
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, signupsdk.ErrorCodeInvalidRequest, "Invalid request body")
		return
	}
	if body.OTP == "" {
		writeValidationError(w, map[string]string{"otp": "otp is required"})
		return
	}

	u, err := h.VerificationService.Verify(ctx, userID, string(body.OTP))
	if err != nil {
		writeVerificationError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, signupsdk.VerifyPasscodeResponse{
		UserID:          u.ID,
		PhoneVerifiedAt: *u.PhoneVerifiedAt,
	})
}

func writeVerificationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrPasscodeMismatch):
		httpx.WriteError(w, http.StatusBadRequest, signupsdk.ErrorCodeInvalidPasscode, err.Error())
	case errors.Is(err, service.ErrPasscodeExpired):
		httpx.WriteError(w, http.StatusBadRequest, signupsdk.ErrorCodePasscodeExpired, err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests, signupsdk.ErrorCodeTooManyAttempts, err.Error())
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, http.StatusConflict, signupsdk.ErrorCodeAlreadyVerified, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, signupsdk.ErrorCodeNotFound, err.Error())
	default:
		slogx.FromContext(r.Context()).Error("passcode request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, signupsdk.ErrorCodeServerError, "Internal server error")
	}
}
