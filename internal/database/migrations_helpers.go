package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/talentgate/internal/models"
)

// grantPermissions links the given permission keys to a profile. A nil key list grants every
// active permission.
func grantPermissions(db *gorm.DB, profileID uint, keys []string) error {
	var perms []models.Permission
	if err := db.Where("is_active = ?", true).Find(&perms).Error; err != nil {
		return err
	}

	byKey := make(map[string]uint, len(perms))
	for _, perm := range perms {
		byKey[perm.Key()] = perm.ID
	}

	var ids []uint
	if keys == nil {
		for _, perm := range perms {
			ids = append(ids, perm.ID)
		}
	} else {
		for _, key := range keys {
			id, ok := byKey[key]
			if !ok {
				return fmt.Errorf("unknown permission %q", key)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows := make([]models.ProfilePermission, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.ProfilePermission{ProfileID: profileID, PermissionID: id})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
