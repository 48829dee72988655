package http

import (
	"net/http"

	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/jwtx"
	"github.com/aussiebroadwan/signup/pkg/signupsdk"
)

// JWKSHandler publishes the keys registration tokens are signed with.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify registration tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	signupsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, signupsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
