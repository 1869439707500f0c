// Package api implements the meetbook REST API using chi.
package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/meetbook/internal/auth"
)

// AuthMiddleware resolves the caller with authn and stores the identity in
// the request context. Unauthenticated requests get 401.
func AuthMiddleware(authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r)
			if err != nil {
				slog.Debug("authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
