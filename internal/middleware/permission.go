package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

// RequirePermission lets the request through only when the caller holds (resource, action).
// Every evaluation is written to the access audit log.
func RequirePermission(checker services.LoggedPermissionChecker, log *zap.Logger, resource, action string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.CheckAndLog(c.Request.Context(), userID, resource, action, map[string]any{
			"method": c.Request.Method,
			"route":  c.FullPath(),
		})
		if err != nil {
			log.Error("permission check failed",
				zap.Uint("user_id", userID),
				zap.String("resource", resource),
				zap.String("action", action),
				zap.Error(err),
			)
			response.Error(c, err)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
