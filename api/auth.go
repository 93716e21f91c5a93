package api

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator resolves a bearer token to the owner id it authenticates.
type Authenticator interface {
	Authenticate(token string) (ownerID string, ok bool)
}

// StaticTokenAuthenticator maps a fixed set of bearer tokens to owner ids,
// for local development and the scenario harness.
type StaticTokenAuthenticator map[string]string

// Authenticate looks up token in the map.
func (a StaticTokenAuthenticator) Authenticate(token string) (string, bool) {
	owner, ok := a[token]
	return owner, ok
}

type ownerKey struct{}

// OwnerFromContext returns the owner id resolved by RequireBearer.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok
}

// RequireBearer rejects requests with a missing or invalid Authorization
// header (401 on missing/invalid auth) and otherwise stashes the resolved
// owner id on the request context for downstream handlers.
func RequireBearer(authenticator Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "auth_error", "missing bearer token", nil)
			return
		}
		owner, ok := authenticator.Authenticate(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "auth_error", "invalid bearer token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}
