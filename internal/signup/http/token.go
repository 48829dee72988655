package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/signupsdk"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

type TokenHandler struct {
	RegistrationService *service.RegistrationService
}

// ServeHTTP godoc
//
//	@Summary		Reissue registration token
//	@Description	Exchange email and password for a new registration token while the phone number is unverified.
//	@Tags			Registration
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			request	body		signupsdk.RegistrationTokenRequest		true	"Credentials"
//	@Success		200		{object}	signupsdk.RegistrationTokenResponse		"Fresh registration token"
//	@Failure		401		{object}	signupsdk.ErrorResponse					"invalid_credentials"
//	@Failure		409		{object}	signupsdk.ErrorResponse					"Already verified"
//	@Failure		422		{object}	signupsdk.ValidationErrorResponse		"email or password missing"
//	@Failure		429		{object}	signupsdk.ErrorResponse					"Rate limited"
//	@Router			/v1/registrations/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := decodeBody(w, r, &body, func(get func(string) string) {
		body.Email, body.Password = get("email"), get("password")
	})
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, signupsdk.ErrorCodeInvalidRequest, "Invalid request body")
		return
	}

	missing := map[string]string{}
	if body.Email == "" {
		missing["email"] = "email is required"
	}
	if body.Password == "" {
		missing["password"] = "password is required"
	}
	if len(missing) > 0 {
		writeValidationError(w, missing)
		return
	}

	reg, err := h.RegistrationService.ReissueToken(ctx, body.Email, body.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, signupsdk.ErrorCodeInvalidCredentials, err.Error())
		return
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, http.StatusConflict, signupsdk.ErrorCodeAlreadyVerified, err.Error())
		return
	default:
		slogx.FromContext(ctx).Error("registration token reissue failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, signupsdk.ErrorCodeServerError, "Token reissue failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, signupsdk.RegistrationTokenResponse{
		UserID:            reg.User.ID,
		RegistrationToken: reg.Token,
		TokenType:         "Bearer",
		ExpiresIn:         int(reg.TokenExpiresIn.Seconds()),
	})
}
