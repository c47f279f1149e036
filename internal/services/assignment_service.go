package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
)

// Audit notes recorded when an assignment call leaves the store unchanged.
const (
	assignmentNoteAlreadyActive = "already_active"
	assignmentNoteNotActive     = "not_active"
)

// AssignmentService binds users to profiles. Bindings are closed on revocation and never
// deleted, so the table doubles as assignment history.
type AssignmentService struct {
	db    *gorm.DB
	audit *AuditService
	log   *zap.Logger
	now   func() time.Time
}

// NewAssignmentService constructs an AssignmentService using the provided database handle.
func NewAssignmentService(db *gorm.DB, audit *AuditService, opts ...Option) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	if audit == nil {
		return nil, errors.New("assignment service: audit service is required")
	}
	o := applyOptions("assignments", opts)
	return &AssignmentService{db: db, audit: audit, log: o.log, now: o.now}, nil
}

// GetUserProfiles returns the active profiles currently bound to a user, ordered by level and
// name. Bindings to deactivated profiles are skipped.
func (s *AssignmentService) GetUserProfiles(ctx context.Context, userID uint) ([]models.Profile, error) {
	ctx = ensureContext(ctx)

	profiles := []models.Profile{}
	if userID == 0 {
		return profiles, nil
	}

	err := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Joins("JOIN user_profiles ON user_profiles.profile_id = profiles.id").
		Where("user_profiles.user_id = ? AND user_profiles.revoked_at IS NULL AND profiles.is_active = ?", userID, true).
		Order("profiles.level ASC").
		Order("profiles.name ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, apperrors.StoreUnavailable("load user profiles", err)
	}
	return profiles, nil
}

// ListAssignmentHistory returns every binding ever created for the user, newest first.
func (s *AssignmentService) ListAssignmentHistory(ctx context.Context, userID uint) ([]models.UserProfile, error) {
	ctx = ensureContext(ctx)

	bindings := []models.UserProfile{}
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Order("id DESC").
		Find(&bindings).Error
	if err != nil {
		return nil, apperrors.StoreUnavailable("list assignment history", err)
	}
	return bindings, nil
}

// AssignProfileToUser binds the profile to the user. Assigning an already active binding is a
// no-op that still writes an audit entry noted "already_active".
func (s *AssignmentService) AssignProfileToUser(ctx context.Context, userID, profileID, actorID uint) (*models.UserProfile, error) {
	ctx = ensureContext(ctx)

	binding, err := s.assign(ctx, userID, profileID, actorID)
	if err != nil && isUniqueConstraintError(err) {
		// A concurrent caller created the binding between our read and insert. The retry
		// sees it and takes the already-active path.
		s.log.Debug("assignment raced, retrying",
			zap.Uint("user_id", userID),
			zap.Uint("profile_id", profileID),
		)
		binding, err = s.assign(ctx, userID, profileID, actorID)
	}
	if err != nil {
		return nil, storeError("assign profile", err)
	}
	return binding, nil
}

func (s *AssignmentService) assign(ctx context.Context, userID, profileID, actorID uint) (*models.UserProfile, error) {
	var binding *models.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, created, err := assignTx(tx, userID, profileID, actorID, s.now())
		if err != nil {
			return err
		}
		binding = result

		fields := map[string]any{
			"user_id":    userID,
			"profile_id": profileID,
			"binding_id": result.ID,
		}
		if !created {
			fields["note"] = assignmentNoteAlreadyActive
		}
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  actorID,
			Resource: auditResourceAssignments,
			Action:   auditActionAssign,
			Allowed:  true,
			Context:  fields,
		})
	})
	return binding, err
}

// RevokeProfileFromUser closes the user's active binding to the profile. Revoking a binding
// that is not active is a no-op audited with the note "not_active".
func (s *AssignmentService) RevokeProfileFromUser(ctx context.Context, userID, profileID, actorID uint) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		binding, err := revokeTx(tx, userID, profileID, actorID, s.now())
		if err != nil {
			return err
		}

		fields := map[string]any{
			"user_id":    userID,
			"profile_id": profileID,
		}
		if binding == nil {
			fields["note"] = assignmentNoteNotActive
		} else {
			fields["binding_id"] = binding.ID
		}
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  actorID,
			Resource: auditResourceAssignments,
			Action:   auditActionRevoke,
			Allowed:  true,
			Context:  fields,
		})
	})
}

// CountActiveAssignments reports how many bindings are currently active.
func (s *AssignmentService) CountActiveAssignments(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("revoked_at IS NULL").
		Count(&total).Error; err != nil {
		return 0, apperrors.StoreUnavailable("count active assignments", err)
	}
	return total, nil
}

func findActiveBindingTx(tx *gorm.DB, userID, profileID uint) (*models.UserProfile, error) {
	var binding models.UserProfile
	err := tx.Where("user_id = ? AND profile_id = ? AND revoked_at IS NULL", userID, profileID).
		Take(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("load binding", err)
	}
	return &binding, nil
}

// assignTx returns the active binding for (user, profile), creating it when absent. The bool
// reports whether a new row was written.
func assignTx(tx *gorm.DB, userID, profileID, actorID uint, now time.Time) (*models.UserProfile, bool, error) {
	if userID == 0 {
		return nil, false, apperrors.InvalidInput("user id is required", "")
	}
	if _, err := loadActiveProfileTx(tx, profileID); err != nil {
		return nil, false, err
	}

	existing, err := findActiveBindingTx(tx, userID, profileID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	key := models.ActiveBindingKey(userID, profileID)
	binding := &models.UserProfile{
		UserID:     userID,
		ProfileID:  profileID,
		AssignedBy: actorID,
		AssignedAt: now.UTC(),
		ActiveKey:  &key,
	}
	if err := tx.Create(binding).Error; err != nil {
		// Unique violations are returned raw so the caller can recognise the race.
		if isUniqueConstraintError(err) {
			return nil, false, err
		}
		return nil, false, apperrors.StoreUnavailable("create binding", err)
	}
	return binding, true, nil
}

// revokeTx closes the active binding and returns it, or returns nil when none is active.
func revokeTx(tx *gorm.DB, userID, profileID, actorID uint, now time.Time) (*models.UserProfile, error) {
	existing, err := findActiveBindingTx(tx, userID, profileID)
	if err != nil || existing == nil {
		return nil, err
	}

	revokedAt := now.UTC()
	result := tx.Model(&models.UserProfile{}).
		Where("id = ? AND revoked_at IS NULL", existing.ID).
		Updates(map[string]any{
			"revoked_at": revokedAt,
			"revoked_by": actorID,
			"active_key": nil,
		})
	if result.Error != nil {
		return nil, apperrors.StoreUnavailable("revoke binding", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	existing.RevokedAt = &revokedAt
	existing.RevokedBy = &actorID
	existing.ActiveKey = nil
	return existing, nil
}
