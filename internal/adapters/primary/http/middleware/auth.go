package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

const headerAPIKey = "X-API-Key"

// APIKey gates scoring routes behind the shared secret. The configured key
// never appears in logs or responses.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader(headerAPIKey)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}
