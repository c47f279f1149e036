package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/talentgate/internal/models"
)

// Sync persists registered definitions to the permissions table. Rows missing from the registry
// are deactivated, never deleted, because profiles may still reference them.
func Sync(ctx context.Context, db *gorm.DB, reg *Registry) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if reg == nil {
		return errors.New("permission: registry is required")
	}
	ctx = ensureContext(ctx)

	defs := reg.All()
	known := make(map[string]struct{}, len(defs))

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defs {
			known[def.Key()] = struct{}{}

			record := models.Permission{
				Resource:    def.Resource,
				Action:      def.Action,
				Category:    def.Category,
				Description: def.Description,
				IsActive:    true,
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "resource"}, {Name: "action"}},
				DoUpdates: clause.AssignmentColumns([]string{"category", "description", "is_active", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("permission: sync %s: %w", def.Key(), err)
			}
		}

		var existing []models.Permission
		if err := tx.Where("is_active = ?", true).Find(&existing).Error; err != nil {
			return fmt.Errorf("permission: load existing: %w", err)
		}

		var stale []uint
		for _, perm := range existing {
			if _, ok := known[perm.Key()]; !ok {
				stale = append(stale, perm.ID)
			}
		}
		if len(stale) == 0 {
			return nil
		}

		if err := tx.Model(&models.Permission{}).Where("id IN ?", stale).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("permission: deactivate stale: %w", err)
		}
		return nil
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
