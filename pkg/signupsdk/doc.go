/*
Package signupsdk is a Go client for the signup service.

	client := signupsdk.NewSDKClient("https://signup.example.com")

	reg, err := client.Register(ctx, signupsdk.RegisterRequest{
		Name:                 "Jo",
		Email:                "jo@x.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
		PhoneNumber:          "15551234567",
	})
	if err != nil {
		var apiErr *signupsdk.APIError
		if errors.As(err, &apiErr) && apiErr.IsValidation() {
			for field, msg := range apiErr.Details {
				fmt.Printf("%s: %s\n", field, msg)
			}
		}
		return err
	}

	// The passcode arrives on the user's phone; the registration token
	// returned above authorizes confirming it.
	_, err = client.VerifyPasscode(ctx, reg.RegistrationToken, "4821")

Every non-2xx response is returned as an *APIError carrying the HTTP status,
the error code and, for validation failures, the per-field messages.
*/
package signupsdk
