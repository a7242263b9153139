package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/training_reports/appctx"
	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionMiddleware verifies the bearer token issued by the training backend
// and stores the resulting models.RequestContext on the request.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.Request.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claim, err := utils.JwtValidate(token)
		if err != nil {
			config.GetLogger().WithFields(logrus.Fields{"field": "session"}).Info(err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		role, err := models.ParseRole(claim.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		rc := models.RequestContext{Token: token, Role: role, StateId: claim.StateId, UserId: claim.ID}
		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = appctx.Set(ctx, appctx.ContextKeyRequestContext, rc)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func GetRequestContext(ctx context.Context) (models.RequestContext, bool) {
	rc, ok := appctx.Get(ctx, appctx.ContextKeyRequestContext).(models.RequestContext)
	return rc, ok
}
