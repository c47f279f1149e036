package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/metrics"
)

// Resolver computes effective permissions. A user's permissions are the union of the grants of
// their active profiles; profile levels never imply inheritance. Results are never cached, so a
// committed change is visible to the next call.
type Resolver struct {
	db          *gorm.DB
	assignments *AssignmentService
	audit       *AuditService
	log         *zap.Logger
}

// NewResolver constructs a Resolver reading through the assignment store.
func NewResolver(db *gorm.DB, assignments *AssignmentService, audit *AuditService, opts ...Option) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("resolver: db is required")
	}
	if assignments == nil {
		return nil, errors.New("resolver: assignment service is required")
	}
	if audit == nil {
		return nil, errors.New("resolver: audit service is required")
	}
	o := applyOptions("resolver", opts)
	return &Resolver{db: db, assignments: assignments, audit: audit, log: o.log}, nil
}

// GetUserPermissions returns the distinct active permissions granted through the user's active
// profiles, ordered by resource and action. Users without profiles get an empty list.
func (r *Resolver) GetUserPermissions(ctx context.Context, userID uint) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	profiles, err := r.assignments.GetUserProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []models.Permission{}, nil
	}

	profileIDs := make([]uint, 0, len(profiles))
	for _, profile := range profiles {
		profileIDs = append(profileIDs, profile.ID)
	}

	granted, err := permissionsForProfiles(r.db.WithContext(ctx), profileIDs)
	if err != nil {
		return nil, apperrors.StoreUnavailable("resolve user permissions", err)
	}

	byKey := make(map[string]models.Permission, len(granted))
	for _, perm := range granted {
		byKey[perm.Key()] = perm
	}

	out := make([]models.Permission, 0, len(byKey))
	for _, perm := range byKey {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}

// HasPermission reports whether the user holds (resource, action). Unknown users, unknown pairs
// and users without profiles evaluate to false; only store failures return an error.
func (r *Resolver) HasPermission(ctx context.Context, userID uint, resource, action string) (bool, error) {
	ctx = ensureContext(ctx)

	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if userID == 0 || resource == "" || action == "" {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Joins("JOIN profiles ON profiles.id = user_profiles.profile_id").
		Joins("JOIN profile_permissions ON profile_permissions.profile_id = profiles.id").
		Joins("JOIN permissions ON permissions.id = profile_permissions.permission_id").
		Where("user_profiles.user_id = ? AND user_profiles.revoked_at IS NULL", userID).
		Where("profiles.is_active = ? AND permissions.is_active = ?", true, true).
		Where("permissions.resource = ? AND permissions.action = ?", resource, action).
		Count(&count).Error
	if err != nil {
		return false, apperrors.StoreUnavailable("check permission", err)
	}
	return count > 0, nil
}

// CheckAndLog evaluates HasPermission and writes exactly one audit entry with the outcome. A
// failed evaluation is logged as denied and its error is returned together with any audit
// failure. A blank resource or action is rejected with InvalidInput before anything is
// evaluated or written.
func (r *Resolver) CheckAndLog(ctx context.Context, userID uint, resource, action string, fields map[string]any) (bool, error) {
	ctx = ensureContext(ctx)

	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return false, apperrors.InvalidInput("permission check requires resource and action", resource+":"+action)
	}

	allowed, checkErr := r.HasPermission(ctx, userID, resource, action)

	entryFields := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		entryFields[k] = v
	}
	result := "denied"
	switch {
	case checkErr != nil:
		allowed = false
		result = "error"
		entryFields["error"] = checkErr.Error()
	case allowed:
		result = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(resource, action, result).Inc()

	auditErr := r.audit.LogAccess(ctx, AuditEntry{
		ActorID:  userID,
		Resource: resource,
		Action:   action,
		Allowed:  allowed,
		Context:  entryFields,
	})
	if checkErr != nil || auditErr != nil {
		r.log.Warn("permission check incomplete",
			zap.Uint("user_id", userID),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.NamedError("check_error", checkErr),
			zap.NamedError("audit_error", auditErr),
		)
	}

	return allowed, multierr.Append(checkErr, auditErr)
}
