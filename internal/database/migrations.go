package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/models"
	"github.com/charlesng35/talentgate/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Permission{},
		&models.Profile{},
		&models.ProfilePermission{},
		&models.User{},
		&models.UserProfile{},
		&models.AccessAuditLog{},
		&models.PermissionChangeRequest{},
	)
}

// ProfileSeed describes a profile created on first start together with its initial grants.
type ProfileSeed struct {
	Code        string
	Name        string
	Description string
	Level       int
	// Grants lists "resource:action" keys. A nil slice grants every registered permission.
	Grants []string
}

// DefaultProfiles returns the profiles seeded into an empty database.
func DefaultProfiles() []ProfileSeed {
	return []ProfileSeed{
		{
			Code:        "admin",
			Name:        "Administrator",
			Description: "Full access to the platform, including access control",
			Level:       1,
		},
		{
			Code:        "manager",
			Name:        "Manager",
			Description: "Runs goal, evaluation and development cycles for a team",
			Level:       2,
			Grants: []string{
				"goals:view", "goals:create", "goals:edit", "goals:approve",
				"evaluations:view", "evaluations:create", "evaluations:submit", "evaluations:calibrate",
				"pdi:view", "pdi:create", "pdi:approve",
				"org_chart:view",
				"time_clock:view", "time_clock:register", "time_clock:adjust",
				"notifications:view", "notifications:send",
				"profiles:view", "assignments:view",
				"change_requests:view", "change_requests:create",
			},
		},
		{
			Code:        "employee",
			Name:        "Employee",
			Description: "Self-service access for every employee",
			Level:       3,
			Grants: []string{
				"goals:view", "goals:create", "goals:edit",
				"evaluations:view", "evaluations:submit",
				"pdi:view", "pdi:create",
				"org_chart:view",
				"time_clock:view", "time_clock:register",
				"notifications:view",
			},
		},
	}
}

// SeedData synchronises the permission catalogue and creates the default profiles. Grants are
// only written when a profile is created so administrators' later changes survive restarts.
func SeedData(db *gorm.DB) error {
	reg, err := permissions.Default()
	if err != nil {
		return fmt.Errorf("build permission registry: %w", err)
	}
	if err := permissions.Sync(context.Background(), db, reg); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range DefaultProfiles() {
			profile := models.Profile{
				Code:        seed.Code,
				Name:        seed.Name,
				Description: seed.Description,
				Level:       seed.Level,
				IsActive:    true,
			}

			result := tx.Where(models.Profile{Code: seed.Code}).Attrs(profile).FirstOrCreate(&profile)
			if result.Error != nil {
				return fmt.Errorf("seed profile %s: %w", seed.Code, result.Error)
			}
			if result.RowsAffected == 0 {
				continue
			}

			if err := grantPermissions(tx, profile.ID, seed.Grants); err != nil {
				return fmt.Errorf("seed grants for %s: %w", seed.Code, err)
			}
		}
		return nil
	})
}
