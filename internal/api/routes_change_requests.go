package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/permissions"
)

func registerChangeRequestRoutes(access *gin.RouterGroup, handler *handlers.ChangeRequestHandler, guard guardFunc) {
	view := guard(permissions.ResourceChangeRequests, permissions.ActionView)
	approve := guard(permissions.ResourceChangeRequests, permissions.ActionApprove)

	requests := access.Group("/change-requests")
	{
		requests.GET("", view, handler.List)
		requests.POST("", guard(permissions.ResourceChangeRequests, permissions.ActionCreate), handler.Create)
		requests.GET("/pending", view, handler.Pending)
		requests.GET("/:id", view, handler.Get)
		requests.POST("/:id/approve", approve, handler.Approve)
		requests.POST("/:id/reject", approve, handler.Reject)
	}
}
