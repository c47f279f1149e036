package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/api"
	"github.com/charlesng35/talentgate/internal/app"
	"github.com/charlesng35/talentgate/internal/app/maintenance"
	"github.com/charlesng35/talentgate/internal/database"
	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Reporter *maintenance.Reporter
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger, ring *logger.Ring) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Monitoring.Reporter.Enabled {
		stack.Reporter, err = newReporter(stack.DB, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := stack.Reporter.Start(); err != nil {
			return nil, fmt.Errorf("start metrics reporter: %w", err)
		}
	}

	var routerOpts []api.Option
	if stack.Reporter != nil {
		routerOpts = append(routerOpts, api.WithReporterStatus(stack.Reporter))
	}
	stack.Router, err = api.NewRouter(stack.DB, cfg, log, ring, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	success = true
	return stack, nil
}

func newReporter(db *gorm.DB, cfg *app.Config, log *zap.Logger) (*maintenance.Reporter, error) {
	audit, err := services.NewAuditService(db, services.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}
	changes, err := services.NewChangeRequestService(db, audit, services.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("initialise change request service: %w", err)
	}
	assignments, err := services.NewAssignmentService(db, audit, services.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("initialise assignment service: %w", err)
	}

	return maintenance.NewReporter(changes, assignments,
		maintenance.WithSchedule(cfg.Monitoring.Reporter.Schedule),
		maintenance.WithLogger(log),
	), nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Reporter != nil {
		stopCtx := s.Reporter.Stop()
		if stopCtx != nil {
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
				log.Warn("metrics reporter did not stop in time")
			}
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg, log)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		closeDatabase(db, log)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule(log, "database").Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config, log *zap.Logger) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          logger.WithModule(log, "gorm"),
		SlowThreshold:   cfg.Database.SlowQueryThreshold,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
