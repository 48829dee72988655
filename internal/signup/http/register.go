package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/signupsdk"
	"github.com/aussiebroadwan/signup/pkg/slogx"
)

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

type registerBody struct {
	Name                 formField `json:"name"`
	Email                formField `json:"email"`
	Password             formField `json:"password"`
	PasswordConfirmation formField `json:"password_confirmation"`
	PhoneNumber          formField `json:"phone_number"`
}

// input converts the body, collecting fields that arrived with the wrong
// JSON type. Only phone_number may be sent as a number.
func (b registerBody) input() service.RegistrationInput {
	var malformed []string
	in := service.RegistrationInput{
		Name:                 b.Name.text("name", false, &malformed),
		Email:                b.Email.text("email", false, &malformed),
		Password:             b.Password.text("password", false, &malformed),
		PasswordConfirmation: b.PasswordConfirmation.text("password_confirmation", false, &malformed),
		PhoneNumber:          b.PhoneNumber.text("phone_number", true, &malformed),
	}
	in.Malformed = malformed
	return in
}

// ServeHTTP godoc
//
//	@Summary		Register
//	@Description	Create a user and send the registration passcode to their phone.
//	@Description	The passcode is delivered asynchronously if the provider is slow or down; notification_status reports what happened inline.
//	@Tags			Registration
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			request	body		signupsdk.RegisterRequest				true	"Registration form"
//	@Success		201		{object}	signupsdk.RegisterResponse				"Created user and registration token"
//	@Failure		400		{object}	signupsdk.ErrorResponse					"Malformed body"
//	@Failure		422		{object}	signupsdk.ValidationErrorResponse		"Field errors"
//	@Failure		429		{object}	signupsdk.ErrorResponse					"Rate limited"
//	@Failure		500		{object}	signupsdk.ErrorResponse					"Server error"
//	@Router			/v1/registrations [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body registerBody
	err := decodeBody(w, r, &body, func(get func(string) string) {
		body = registerBody{
			Name:                 formField{Value: get("name")},
			Email:                formField{Value: get("email")},
			Password:             formField{Value: get("password")},
			PasswordConfirmation: formField{Value: get("password_confirmation")},
			PhoneNumber:          formField{Value: get("phone_number")},
		}
	})
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, signupsdk.ErrorCodeInvalidRequest, "Invalid request body")
		return
	}

	reg, err := h.RegistrationService.Register(ctx, body.input())
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr.Fields)
			return
		}
		log.Error("registration failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, signupsdk.ErrorCodeServerError, "Registration failed")
		return
	}

	resp := signupsdk.RegisterResponse{
		UserID:             reg.User.ID,
		Name:               reg.User.Name,
		Email:              reg.User.Email,
		PhoneNumber:        reg.User.PhoneNumber,
		CreatedAt:          reg.User.CreatedAt,
		NotificationStatus: string(reg.NotificationStatus),
	}
	if reg.Token != "" {
		resp.RegistrationToken = reg.Token
		resp.TokenType = "Bearer"
		resp.ExpiresIn = int(reg.TokenExpiresIn.Seconds())
	}

	w.Header().Set("Location", "/v1/registrations/"+reg.User.ID)
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	httpx.WriteJSON(w, http.StatusUnprocessableEntity, signupsdk.ValidationErrorResponse{
		Code:    signupsdk.ErrorCodeValidation,
		Message: "The given data was invalid.",
		Details: fields,
	})
}
