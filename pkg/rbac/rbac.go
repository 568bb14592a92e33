// Package rbac gates routes by the role carried in the caller's token.
package rbac

import (
	"fmt"
	"net/http"

	"github.com/feastly/feastly/pkg/middleware"
	"github.com/feastly/feastly/pkg/response"
)

// HasRole admits callers whose role is one of roles. It must run after
// middleware.Auth; a request without an identity is rejected with 401.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Problem(w, http.StatusUnauthorized, "Unauthorized", "Unauthorized")
				return
			}
			if !allowed[role] {
				response.Problem(w, http.StatusForbidden, fmt.Sprintf("User role %s is not authorized to access this route", role), "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
