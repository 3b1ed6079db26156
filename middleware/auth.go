package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuth gates administrative cache routes behind a single shared
// service token, compared in constant time. An empty token disables
// the gate — intended for local development only.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			provided := strings.TrimPrefix(authHeader, "Bearer ")
			if provided == authHeader || provided == "" {
				http.Error(w, `{"error":"missing admin token"}`, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				http.Error(w, `{"error":"invalid admin token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
