package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/permissions"
)

func registerAuditRoutes(access *gin.RouterGroup, handler *handlers.AuditHandler, guard guardFunc) {
	access.GET("/audit", guard(permissions.ResourceAudit, permissions.ActionView), handler.List)
	access.GET("/audit/export", guard(permissions.ResourceAudit, permissions.ActionExport), handler.Export)
}

func registerOpsRoutes(api *gin.RouterGroup, handler *handlers.OpsLogHandler, guard guardFunc) {
	api.GET("/ops/logs", guard(permissions.ResourceOpsLogs, permissions.ActionView), handler.List)
}
