package middlewares

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the token's role is one of allowed.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		if !slices.Contains(allowed, role) {
			if m.observer != nil {
				m.observer.ObserveAuthFailure("forbidden_role")
			}
			abortJSON(c, http.StatusForbidden, "forbidden", strings.Join(allowed, " or ")+" role required")
			return
		}
		c.Next()
	}
}
