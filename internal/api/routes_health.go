package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/monitoring"
	"github.com/charlesng35/talentgate/internal/monitoring/checks"
)

func newHealthManager(db *gorm.DB, reporter checks.ReporterStatus) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(checks.Database(db, 0))
	manager.RegisterReadiness(checks.Catalog(db, 0))
	if reporter != nil {
		manager.RegisterReadiness(checks.Reporter(reporter, 0))
	}
	return manager
}

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	registerHealthEndpoints(r, manager)
	registerHealthEndpoints(r.Group("/api"), manager)
}

func registerHealthEndpoints(router gin.IRouter, manager *monitoring.HealthManager) {
	router.GET("/health", handlers.Readiness(manager))
	router.GET("/health/live", handlers.Liveness(manager))
	router.GET("/health/ready", handlers.Readiness(manager))
}
