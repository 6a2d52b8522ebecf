package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/recipedia/internal/actorctx"
	"github.com/geocoder89/recipedia/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// FailureObserver is told why a request was rejected; *observability.Prom satisfies it.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

type AuthMiddleware struct {
	jwt      TokenVerifier
	observer FailureObserver
}

func NewAuthMiddleware(jwt TokenVerifier, observer FailureObserver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, observer: observer}
}

const (
	msgNoToken      = "Access denied. No token provided."
	msgTokenExpired = "Access denied. Token has expired."
	msgInvalidToken = "Invalid token."
)

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			m.reject(c, "missing", msgNoToken)
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.reject(c, "expired", msgTokenExpired)
				return
			}
			m.reject(c, "invalid", msgInvalidToken)
			return
		}

		// Stash useful bits of identity on the context
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxRoleKey, claims.Role)

		reqCtx := actorctx.WithUserID(c.Request.Context(), claims.UserID)
		reqCtx = actorctx.WithRole(reqCtx, claims.Role)
		c.Request = c.Request.WithContext(reqCtx)

		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, reason, message string) {
	if m.observer != nil {
		m.observer.ObserveAuthFailure(reason)
	}
	abortJSON(c, http.StatusUnauthorized, "unauthorized", message)
}

// bearerToken returns the credential of a "Bearer <token>" header, or "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
