package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BoardKeyMiddleware gates mutating portal routes behind a shared board
// key carried in X-Board-Key. An empty configured key disables the gate
// (local development).
func BoardKeyMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-Board-Key")
		if key == "" || key != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "invalid board key",
			})
			return
		}

		c.Next()
	}
}
