package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET,POST,PUT,DELETE,OPTIONS"
	corsAllowHeaders  = "Authorization,Content-Type,If-None-Match,X-Request-Id"
	corsExposeHeaders = "ETag,X-Request-Id,X-Cache,Retry-After"
)

// CORSMiddleware echoes allowed origins so the browser frontend can send the bearer header.
// A "*" entry allows any origin; credentials are then not advertised.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := false

	for _, origin := range allowedOrigins {
		if origin == "*" {
			anyOrigin = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")

		if origin != "" {
			ctx.Header("Vary", "Origin")

			_, listed := allowed[origin]
			if listed || anyOrigin {
				ctx.Header("Access-Control-Allow-Origin", origin)
				if listed {
					ctx.Header("Access-Control-Allow-Credentials", "true")
				}
				ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
				ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)
				ctx.Header("Access-Control-Max-Age", "600")
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
