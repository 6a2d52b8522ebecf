package middlewares

import "github.com/gin-gonic/gin"

// gin context keys
const (
	CtxRequestID = "request_id"
	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"
)

// abortJSON writes the error envelope shared with the handlers package.
func abortJSON(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": reqID,
		},
	})
}
