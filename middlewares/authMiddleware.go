package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"github.com/gin-gonic/gin"
)

// RequireCapability answers 403 unless the session's role grants every capability.
// It must run after SessionMiddleware.
func RequireCapability(caps ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, ok := GetRequestContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, capability := range caps {
			if !rc.Role.Can(capability) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}
		c.Next()
	}
}
