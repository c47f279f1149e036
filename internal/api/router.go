package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/app"
	iauth "github.com/charlesng35/talentgate/internal/auth"
	"github.com/charlesng35/talentgate/internal/handlers"
	"github.com/charlesng35/talentgate/internal/middleware"
	"github.com/charlesng35/talentgate/internal/monitoring/checks"
	"github.com/charlesng35/talentgate/internal/permissions"
	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/logger"
)

// guardFunc builds the middleware enforcing (resource, action) on a route.
type guardFunc func(resource, action string) gin.HandlerFunc

// Option customises NewRouter.
type Option func(*routerOptions)

type routerOptions struct {
	reporter checks.ReporterStatus
}

// WithReporterStatus adds the metrics reporter to the readiness checks.
func WithReporterStatus(status checks.ReporterStatus) Option {
	return func(o *routerOptions) {
		o.reporter = status
	}
}

// NewRouter builds the Gin engine, wires middleware and registers the access-control routes.
// ring may be nil, in which case the operations log endpoint is not mounted.
func NewRouter(db *gorm.DB, cfg *app.Config, log *zap.Logger, ring *logger.Ring, opts ...Option) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if log == nil {
		log = zap.NewNop()
	}
	var options routerOptions
	for _, opt := range opts {
		opt(&options)
	}

	svcOpts := []services.Option{services.WithLogger(log)}
	auditSvc, err := services.NewAuditService(db, svcOpts...)
	if err != nil {
		return nil, err
	}
	profileSvc, err := services.NewProfileService(db, auditSvc, svcOpts...)
	if err != nil {
		return nil, err
	}
	assignmentSvc, err := services.NewAssignmentService(db, auditSvc, svcOpts...)
	if err != nil {
		return nil, err
	}
	resolver, err := services.NewResolver(db, assignmentSvc, auditSvc, svcOpts...)
	if err != nil {
		return nil, err
	}
	changeSvc, err := services.NewChangeRequestService(db, auditSvc, svcOpts...)
	if err != nil {
		return nil, err
	}
	catalog, err := permissions.NewCatalog(db)
	if err != nil {
		return nil, err
	}

	identity := middleware.IdentityConfig{Header: cfg.Auth.IdentityHeader}
	if cfg.Auth.JWT.Secret != "" {
		verifier, err := iauth.NewTokenVerifier(iauth.TokenConfig{
			Secret: cfg.Auth.JWT.Secret,
			Issuer: cfg.Auth.JWT.Issuer,
		})
		if err != nil {
			return nil, err
		}
		identity.Verifier = verifier
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, newHealthManager(db, options.reporter))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	guard := func(resource, action string) gin.HandlerFunc {
		return middleware.RequirePermission(resolver, log, resource, action)
	}

	api := r.Group("/api")
	api.Use(middleware.Identity(identity))

	access := api.Group("/access")

	permHandler, err := handlers.NewPermissionHandler(catalog, resolver)
	if err != nil {
		return nil, err
	}
	registerPermissionRoutes(access, permHandler, guard)

	profileHandler, err := handlers.NewProfileHandler(profileSvc)
	if err != nil {
		return nil, err
	}
	registerProfileRoutes(access, profileHandler, guard)

	assignmentHandler, err := handlers.NewAssignmentHandler(assignmentSvc)
	if err != nil {
		return nil, err
	}
	registerAssignmentRoutes(access, assignmentHandler, guard)

	changeHandler, err := handlers.NewChangeRequestHandler(changeSvc)
	if err != nil {
		return nil, err
	}
	registerChangeRequestRoutes(access, changeHandler, guard)

	auditHandler, err := handlers.NewAuditHandler(auditSvc, cfg.Audit.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	registerAuditRoutes(access, auditHandler, guard)

	if ring != nil {
		opsHandler, err := handlers.NewOpsLogHandler(ring)
		if err != nil {
			return nil, err
		}
		registerOpsRoutes(api, opsHandler, guard)
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
