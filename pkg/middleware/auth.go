package middleware

import (
	"context"
	"net/http"

	"github.com/feastly/feastly/pkg/auth"
	"github.com/feastly/feastly/pkg/response"
)

type identityKey struct{}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Role   string
}

// WithIdentity stores id in ctx. Exported for tests and non-HTTP callers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromCtx returns the caller stored by Auth.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromCtx returns the authenticated user id.
func UserIDFromCtx(r *http.Request) (string, bool) {
	id, ok := IdentityFromCtx(r.Context())
	return id.UserID, ok
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	id, ok := IdentityFromCtx(r.Context())
	return id.Role, ok
}

// Auth rejects requests without a valid bearer token. Browsers cannot set
// headers on a WebSocket handshake, so a "token" query parameter is accepted
// as a fallback.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if t := r.URL.Query().Get("token"); t != "" {
				header = "Bearer " + t
			}
		}

		claims, err := auth.FromHeader(header)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
