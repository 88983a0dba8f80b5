package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// HS256Verifier checks tokens signed with a pre-shared secret.
// The audience is not checked and exp is only enforced when present.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *HS256Verifier) Verify(_ context.Context, token string) (string, error) {
	const op = "adapter.auth.HS256Verifier.Verify"

	var claims jwt.RegisteredClaims

	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, entity.ErrUnauthorized, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w: missing subject claim", op, entity.ErrUnauthorized)
	}

	return claims.Subject, nil
}
