package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NoStore marks every response as a non-cacheable JSON API response.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("X-Content-Type-Options", "nosniff")

		c.Next()
	}
}

// RequestSizeLimit caps request bodies. Declared lengths over the cap are
// rejected up front; chunked bodies fail while being decoded and surface as
// *http.MaxBytesError to the handler.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": (&http.MaxBytesError{Limit: maxBytes}).Error(),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		c.Next()
	}
}
