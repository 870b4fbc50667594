package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookBodyLimit is the largest Stripe webhook payload accepted
const WebhookBodyLimit = 64 << 10

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortTooLarge(c)
			return
		}

		// chunked bodies are cut off while reading
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// AbortTooLarge writes the 413 envelope
func AbortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "PAYLOAD_TOO_LARGE",
			"message": "Request body exceeds maximum allowed size",
		},
	})
}

// IsBodyTooLarge reports whether err came from a body cut off by BodyLimit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
