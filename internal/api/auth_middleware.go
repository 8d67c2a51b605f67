package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rebuttal-io/rebuttal/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Any other shape — missing header, wrong scheme, extra parts — is
// not a parse error, it is simply "no token provided".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth blocks the request unless a bearer token resolves to a user.
// The downstream handler is never invoked on failure.
func (api *Api) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, err := api.Auth.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches an identity when a valid token is supplied but never
// blocks the request; every resolution failure is silently absorbed.
func (api *Api) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if user, err := api.Auth.Resolve(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated user attached by the
// middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
