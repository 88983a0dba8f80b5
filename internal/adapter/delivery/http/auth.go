package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/pkg/middleware"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type identityKey struct{}

func withIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// identityFrom returns the authenticated caller, or nil when the request was
// not authenticated.
func identityFrom(ctx context.Context) *string {
	id, ok := ctx.Value(identityKey{}).(string)
	if !ok {
		return nil
	}
	return &id
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}

	return strings.TrimSpace(token), nil
}

// authenticate rejects requests without a valid bearer token and stores the
// verified subject in the request context.
func authenticate(verifier tokenVerifier) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				var sub string
				if sub, err = verifier.Verify(r.Context(), token); err == nil {
					next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sub)))
					return
				}
			}

			httplog.LogEntrySetField(r.Context(), "auth_err", slog.AnyValue(errors.Join(entity.ErrUnauthorized, err)))

			w.Header().Set("WWW-Authenticate", "Bearer")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, unauthorizedResponse)
		})
	}
}
