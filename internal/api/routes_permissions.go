package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/permissions"
)

func registerPermissionRoutes(access *gin.RouterGroup, handler *handlers.PermissionHandler, guard guardFunc) {
	access.GET("/permissions", guard(permissions.ResourcePermissions, permissions.ActionView), handler.Catalog)

	// Any authenticated caller may inspect their own grants.
	me := access.Group("/me")
	{
		me.GET("/permissions", handler.MyPermissions)
		me.POST("/check", handler.CheckMine)
	}

	users := access.Group("/users/:userID/permissions")
	{
		users.GET("", guard(permissions.ResourceAssignments, permissions.ActionView), handler.UserPermissions)
		users.GET("/check", guard(permissions.ResourceAssignments, permissions.ActionView), handler.CheckUser)
	}
}
