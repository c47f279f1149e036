package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/permissions"
)

func registerProfileRoutes(access *gin.RouterGroup, handler *handlers.ProfileHandler, guard guardFunc) {
	view := guard(permissions.ResourceProfiles, permissions.ActionView)
	manage := guard(permissions.ResourceProfiles, permissions.ActionManage)

	profiles := access.Group("/profiles")
	{
		profiles.GET("", view, handler.List)
		profiles.POST("", manage, handler.Create)
		profiles.GET("/by-code/:code", view, handler.GetByCode)
		profiles.GET("/:id", view, handler.Get)
		profiles.PATCH("/:id/active", manage, handler.SetActive)
		profiles.GET("/:id/permissions", view, handler.Permissions)
		profiles.PUT("/:id/permissions", manage, handler.UpdatePermissions)
	}
}
