package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag encodes payload once and serves it with a strong ETag.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	RespondRawJSONWithETag(ctx, status, body)
}

// RespondRawJSONWithETag serves an already encoded body, e.g. a cached list page.
// Clients may keep the body but must revalidate, since likes and comments change it.
func RespondRawJSONWithETag(ctx *gin.Context, status int, body []byte) {
	etag := etagFor(body)

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "no-cache")

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

func etagFor(b []byte) string {
	sum := sha256.Sum256(b)

	// 16 bytes is plenty for a validator and keeps the header short
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}

	if headerValue == "*" {
		return true
	}

	for _, part := range strings.Split(headerValue, ",") {
		// weak comparison: W/"x" matches "x"
		if strings.TrimPrefix(strings.TrimSpace(part), "W/") == currentETag {
			return true
		}
	}

	return false
}
