package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/permissions"
)

func registerAssignmentRoutes(access *gin.RouterGroup, handler *handlers.AssignmentHandler, guard guardFunc) {
	view := guard(permissions.ResourceAssignments, permissions.ActionView)
	manage := guard(permissions.ResourceAssignments, permissions.ActionManage)

	bindings := access.Group("/users/:userID/profiles")
	{
		bindings.GET("", view, handler.ListProfiles)
		bindings.GET("/history", view, handler.History)
		bindings.PUT("/:profileID", manage, handler.Assign)
		bindings.DELETE("/:profileID", manage, handler.Revoke)
	}
}
