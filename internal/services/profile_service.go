package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/validator"
)

// ProfileService manages profiles and the permissions granted to them.
type ProfileService struct {
	db    *gorm.DB
	audit *AuditService
	log   *zap.Logger
	now   func() time.Time
}

// NewProfileService constructs a ProfileService using the provided database handle.
func NewProfileService(db *gorm.DB, audit *AuditService, opts ...Option) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	if audit == nil {
		return nil, errors.New("profile service: audit service is required")
	}
	o := applyOptions("profiles", opts)
	return &ProfileService{db: db, audit: audit, log: o.log, now: o.now}, nil
}

// CreateProfileInput describes the payload accepted by CreateProfile.
type CreateProfileInput struct {
	Code        string `json:"code" validate:"required,code"`
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
	Level       int    `json:"level" validate:"gte=0"`
}

// PermissionDiff describes how a profile's grant set changed.
type PermissionDiff struct {
	Before  []uint `json:"before"`
	After   []uint `json:"after"`
	Added   []uint `json:"added"`
	Removed []uint `json:"removed"`
}

// Changed reports whether any grant was added or removed.
func (d PermissionDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

func (d PermissionDiff) auditFields() map[string]any {
	return map[string]any{
		"before":  d.Before,
		"after":   d.After,
		"added":   d.Added,
		"removed": d.Removed,
	}
}

// ListProfiles returns every profile ordered by level, then name.
func (s *ProfileService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	ctx = ensureContext(ctx)

	profiles := []models.Profile{}
	if err := s.db.WithContext(ctx).Order("level ASC").Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, apperrors.StoreUnavailable("list profiles", err)
	}
	return profiles, nil
}

// GetProfile loads a profile by id.
func (s *ProfileService) GetProfile(ctx context.Context, profileID uint) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	return loadProfileTx(s.db.WithContext(ctx), profileID)
}

// GetProfileByCode loads a profile by its unique code.
func (s *ProfileService) GetProfileByCode(ctx context.Context, code string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("profile", code)
		}
		return nil, apperrors.StoreUnavailable("load profile", err)
	}
	return &profile, nil
}

// GetProfilePermissions lists the active permissions granted to a profile, ordered by resource
// and action.
func (s *ProfileService) GetProfilePermissions(ctx context.Context, profileID uint) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	perms, err := permissionsForProfiles(s.db.WithContext(ctx), []uint{profileID})
	if err != nil {
		return nil, apperrors.StoreUnavailable("load profile permissions", err)
	}
	return perms, nil
}

// CreateProfile registers a new, active profile without any grants.
func (s *ProfileService) CreateProfile(ctx context.Context, actorID uint, input CreateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.InvalidInput(err.Error(), input.Code)
	}

	profile := &models.Profile{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Level:       input.Level,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.InvalidInput("profile code already exists", input.Code)
			}
			return apperrors.StoreUnavailable("create profile", err)
		}
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  actorID,
			Resource: auditResourceProfiles,
			Action:   auditActionCreate,
			Allowed:  true,
			Context: map[string]any{
				"profile_id": profile.ID,
				"code":       profile.Code,
				"level":      profile.Level,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("profile created", zap.String("code", profile.Code), zap.Uint("actor_id", actorID))
	return profile, nil
}

// SetProfileActive activates or deactivates a profile. Bindings to an inactive profile stay in
// place but grant nothing until the profile is reactivated.
func (s *ProfileService) SetProfileActive(ctx context.Context, actorID, profileID uint, active bool) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	var profile *models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, err = loadProfileTx(tx, profileID)
		if err != nil {
			return err
		}

		before := profile.IsActive
		if before != active {
			if err := tx.Model(profile).Update("is_active", active).Error; err != nil {
				return apperrors.StoreUnavailable("update profile", err)
			}
			profile.IsActive = active
		}

		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  actorID,
			Resource: auditResourceProfiles,
			Action:   auditActionSetActive,
			Allowed:  true,
			Context: map[string]any{
				"profile_id": profile.ID,
				"before":     before,
				"after":      active,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfilePermissions replaces the profile's grants with permissionIDs in one transaction
// and audits the before/after sets. Duplicate ids are collapsed. The call is audited even when
// the set does not change.
func (s *ProfileService) UpdateProfilePermissions(ctx context.Context, actorID, profileID uint, permissionIDs []uint) (*PermissionDiff, error) {
	ctx = ensureContext(ctx)

	var diff PermissionDiff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := loadActiveProfileTx(tx, profileID)
		if err != nil {
			return err
		}

		diff, err = replacePermissionsTx(tx, profile.ID, permissionIDs)
		if err != nil {
			return err
		}

		fields := diff.auditFields()
		fields["profile_id"] = profile.ID
		fields["profile_code"] = profile.Code
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  actorID,
			Resource: auditResourceProfiles,
			Action:   auditActionUpdatePermissions,
			Allowed:  true,
			Context:  fields,
		})
	})
	if err != nil {
		return nil, err
	}

	if diff.Changed() {
		s.log.Info("profile permissions updated",
			zap.Uint("profile_id", profileID),
			zap.Uint("actor_id", actorID),
			zap.Int("added", len(diff.Added)),
			zap.Int("removed", len(diff.Removed)),
		)
	}
	return &diff, nil
}

func loadProfileTx(tx *gorm.DB, profileID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := tx.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("profile", formatID(profileID))
		}
		return nil, apperrors.StoreUnavailable("load profile", err)
	}
	return &profile, nil
}

// loadActiveProfileTx treats a deactivated profile as missing.
func loadActiveProfileTx(tx *gorm.DB, profileID uint) (*models.Profile, error) {
	profile, err := loadProfileTx(tx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, apperrors.NotFound("profile", formatID(profileID))
	}
	return profile, nil
}

func currentPermissionIDsTx(tx *gorm.DB, profileID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.ProfilePermission{}).
		Where("profile_id = ?", profileID).
		Pluck("permission_id", &ids).Error; err != nil {
		return nil, apperrors.StoreUnavailable("load profile grants", err)
	}
	return normaliseIDs(ids), nil
}

// ensurePermissionsActiveTx returns InvalidInput naming the first id that is unknown or
// inactive.
func ensurePermissionsActiveTx(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var found []uint
	if err := tx.Model(&models.Permission{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &found).Error; err != nil {
		return apperrors.StoreUnavailable("validate permissions", err)
	}

	for _, id := range ids {
		if !containsID(found, id) {
			return apperrors.InvalidInput("unknown or inactive permission", formatID(id))
		}
	}
	return nil
}

// replacePermissionsTx brings the profile's grants to exactly target and reports the diff.
// Callers own the transaction and the audit entry.
func replacePermissionsTx(tx *gorm.DB, profileID uint, target []uint) (PermissionDiff, error) {
	after := normaliseIDs(target)
	if err := ensurePermissionsActiveTx(tx, after); err != nil {
		return PermissionDiff{}, err
	}

	before, err := currentPermissionIDsTx(tx, profileID)
	if err != nil {
		return PermissionDiff{}, err
	}

	diff := PermissionDiff{
		Before:  before,
		After:   after,
		Added:   difference(after, before),
		Removed: difference(before, after),
	}

	if len(diff.Removed) > 0 {
		if err := tx.Where("profile_id = ? AND permission_id IN ?", profileID, diff.Removed).
			Delete(&models.ProfilePermission{}).Error; err != nil {
			return PermissionDiff{}, apperrors.StoreUnavailable("remove profile grants", err)
		}
	}

	if len(diff.Added) > 0 {
		rows := make([]models.ProfilePermission, 0, len(diff.Added))
		for _, id := range diff.Added {
			rows = append(rows, models.ProfilePermission{ProfileID: profileID, PermissionID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return PermissionDiff{}, apperrors.StoreUnavailable("add profile grants", err)
		}
	}

	return diff, nil
}

// addPermissionTx grants one permission. Only the added permission must be active.
func addPermissionTx(tx *gorm.DB, profileID, permissionID uint) (PermissionDiff, error) {
	if err := ensurePermissionsActiveTx(tx, []uint{permissionID}); err != nil {
		return PermissionDiff{}, err
	}

	before, err := currentPermissionIDsTx(tx, profileID)
	if err != nil {
		return PermissionDiff{}, err
	}

	diff := PermissionDiff{
		Before:  before,
		After:   normaliseIDs(append(append([]uint{}, before...), permissionID)),
		Added:   []uint{},
		Removed: []uint{},
	}
	if containsID(before, permissionID) {
		return diff, nil
	}

	grant := models.ProfilePermission{ProfileID: profileID, PermissionID: permissionID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
		return PermissionDiff{}, apperrors.StoreUnavailable("add profile grant", err)
	}
	diff.Added = []uint{permissionID}
	return diff, nil
}

// removePermissionTx drops one grant. The remaining grants are not revalidated, so a
// permission deactivated after it was granted can still be removed.
func removePermissionTx(tx *gorm.DB, profileID, permissionID uint) (PermissionDiff, error) {
	before, err := currentPermissionIDsTx(tx, profileID)
	if err != nil {
		return PermissionDiff{}, err
	}

	diff := PermissionDiff{
		Before:  before,
		After:   difference(before, []uint{permissionID}),
		Added:   []uint{},
		Removed: []uint{},
	}
	if !containsID(before, permissionID) {
		return diff, nil
	}

	if err := tx.Where("profile_id = ? AND permission_id = ?", profileID, permissionID).
		Delete(&models.ProfilePermission{}).Error; err != nil {
		return PermissionDiff{}, apperrors.StoreUnavailable("remove profile grant", err)
	}
	diff.Removed = []uint{permissionID}
	return diff, nil
}

// permissionsForProfiles returns the distinct active permissions granted to any of the given
// profiles, ordered by resource and action.
func permissionsForProfiles(db *gorm.DB, profileIDs []uint) ([]models.Permission, error) {
	perms := []models.Permission{}
	if len(profileIDs) == 0 {
		return perms, nil
	}

	err := db.Model(&models.Permission{}).
		Distinct("permissions.*").
		Joins("JOIN profile_permissions ON profile_permissions.permission_id = permissions.id").
		Where("profile_permissions.profile_id IN ? AND permissions.is_active = ?", profileIDs, true).
		Order("permissions.resource ASC").
		Order("permissions.action ASC").
		Find(&perms).Error
	return perms, err
}
