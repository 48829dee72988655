package http

import (
	"net/http"

	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/signupsdk"
)

type ResendHandler struct {
	VerificationService *service.VerificationService
}

// ServeHTTP godoc
//
//	@Summary		Resend passcode
//	@Description	Send the registration passcode again. The code itself does not change.
//	@Tags			Registration
//	@Produce		json
//	@Security		BearerAuth
//	@Success		202	{object}	signupsdk.ResendPasscodeResponse	"Queued, with inline delivery status"
//	@Failure		400	{object}	signupsdk.ErrorResponse				"passcode_expired"
//	@Failure		401	{object}	signupsdk.ErrorResponse				"Missing or invalid registration token"
//	@Failure		409	{object}	signupsdk.ErrorResponse				"Already verified"
//	@Failure		429	{object}	signupsdk.ErrorResponse				"Rate limited"
//	@Router			/v1/registrations/resend [post].
func (h *ResendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, signupsdk.ErrorCodeInvalidToken, "missing subject")
		return
	}

	status, err := h.VerificationService.Resend(r.Context(), userID)
	if err != nil {
		writeVerificationError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, signupsdk.ResendPasscodeResponse{
		NotificationStatus: string(status),
	})
}
