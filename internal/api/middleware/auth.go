package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/domain"
)

const PrincipalKey contextKey = "principal"

// PrincipalStore resolves bearer tokens to principals.
type PrincipalStore interface {
	GetByToken(ctx context.Context, token string) (*domain.Principal, error)
}

// BearerAuth authenticates requests with a bearer token and stores the
// resolved principal in the request context. Every route behind it can
// assume GetPrincipal returns a non-nil principal.
func BearerAuth(store PrincipalStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			principal, err := store.GetByToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal from context, or nil
// when the request did not pass BearerAuth.
func GetPrincipal(ctx context.Context) *domain.Principal {
	principal, _ := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal
}
