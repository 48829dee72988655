package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/cryptox"
	"github.com/aussiebroadwan/signup/pkg/jwtx"
)

// signingKeys is everything derived from the registration token key.
type signingKeys struct {
	Signer   *jwtx.EdDSASigner
	KeySet   *jwtx.KeySet
	Verifier jwtx.Verifier
}

// initSigningKeys loads the Ed25519 key from disk, generating it on first
// start so tokens survive restarts.
func initSigningKeys(cfg Config, logger *slog.Logger) (signingKeys, error) {
	priv, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
	if err != nil {
		return signingKeys{}, fmt.Errorf("load signing key: %w", err)
	}

	signer, err := jwtx.NewSignerEdDSA(cfg.KeyID, priv)
	if err != nil {
		return signingKeys{}, err
	}

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	logger.Info("registration token key loaded",
		"kid", signer.KID(),
		"alg", signer.Alg(),
		"issuer", cfg.Issuer,
	)

	return signingKeys{
		Signer:   signer,
		KeySet:   keys,
		Verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer, []string{service.TokenAudience}, jwtx.PurposePhoneVerification),
	}, nil
}
