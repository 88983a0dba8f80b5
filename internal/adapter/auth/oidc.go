package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// OIDCVerifier checks tokens against the keys published by an OpenID Connect
// issuer.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier runs provider discovery for issuerURL. An empty audience
// skips the aud check.
func NewOIDCVerifier(ctx context.Context, issuerURL, audience string) (*OIDCVerifier, error) {
	const op = "adapter.auth.NewOIDCVerifier"

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create oidc provider: %w", op, err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(verifierConfig(audience)),
	}, nil
}

func verifierConfig(audience string) *oidc.Config {
	return &oidc.Config{
		ClientID:          audience,
		SkipClientIDCheck: audience == "",
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (string, error) {
	const op = "adapter.auth.OIDCVerifier.Verify"

	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, entity.ErrUnauthorized, err)
	}

	if idToken.Subject == "" {
		return "", fmt.Errorf("%s: %w: missing subject claim", op, entity.ErrUnauthorized)
	}

	return idToken.Subject, nil
}
