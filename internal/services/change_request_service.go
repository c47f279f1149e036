package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/metrics"
	"github.com/charlesng35/talentgate/pkg/validator"
)

const maxChangeRequestPageSize = 500

// ChangeRequestPayload describes a proposed mutation. PermissionID is required for permission
// kinds and UserID for assignment kinds.
type ChangeRequestPayload struct {
	Kind         models.ChangeKind `json:"kind" validate:"required,oneof=add_permission remove_permission assign_profile revoke_profile"`
	ProfileID    uint              `json:"profile_id" validate:"required"`
	PermissionID uint              `json:"permission_id"`
	UserID       uint              `json:"user_id"`
	Reason       string            `json:"reason" validate:"max=1000"`
}

func (p ChangeRequestPayload) validate() error {
	if err := validator.ValidateStruct(p); err != nil {
		return apperrors.InvalidInput(err.Error(), string(p.Kind))
	}
	if p.Kind.TargetsUser() {
		if p.UserID == 0 {
			return apperrors.InvalidInput("user_id is required for "+string(p.Kind), string(p.Kind))
		}
		return nil
	}
	if p.PermissionID == 0 {
		return apperrors.InvalidInput("permission_id is required for "+string(p.Kind), string(p.Kind))
	}
	return nil
}

func (p ChangeRequestPayload) snapshot() datatypes.JSONMap {
	out := datatypes.JSONMap{
		"kind":       string(p.Kind),
		"profile_id": p.ProfileID,
	}
	if p.Kind.TargetsUser() {
		out["user_id"] = p.UserID
	} else {
		out["permission_id"] = p.PermissionID
	}
	return out
}

// ChangeRequestFilter narrows ListPermissionChangeRequests. Zero values disable a filter.
type ChangeRequestFilter struct {
	Status      models.ChangeStatus
	RequesterID *uint
	Limit       int
	Offset      int
}

// ChangeRequestService runs the maker-checker workflow for sensitive permission changes. A
// request never takes effect until a principal other than its requester approves it.
type ChangeRequestService struct {
	db    *gorm.DB
	audit *AuditService
	log   *zap.Logger
	now   func() time.Time
}

// NewChangeRequestService constructs a ChangeRequestService using the provided database handle.
func NewChangeRequestService(db *gorm.DB, audit *AuditService, opts ...Option) (*ChangeRequestService, error) {
	if db == nil {
		return nil, errors.New("change request service: db is required")
	}
	if audit == nil {
		return nil, errors.New("change request service: audit service is required")
	}
	o := applyOptions("change_requests", opts)
	return &ChangeRequestService{db: db, audit: audit, log: o.log, now: o.now}, nil
}

// CreatePermissionChangeRequest validates the payload and its references and stores a pending
// request.
func (s *ChangeRequestService) CreatePermissionChangeRequest(ctx context.Context, requesterID uint, payload ChangeRequestPayload) (*models.PermissionChangeRequest, error) {
	ctx = ensureContext(ctx)

	payload.Kind = models.ChangeKind(strings.TrimSpace(string(payload.Kind)))
	payload.Reason = strings.TrimSpace(payload.Reason)
	if requesterID == 0 {
		return nil, apperrors.InvalidInput("requester id is required", "")
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}

	request := &models.PermissionChangeRequest{
		RequesterID: requesterID,
		Kind:        payload.Kind,
		ProfileID:   payload.ProfileID,
		Payload:     payload.snapshot(),
		Reason:      payload.Reason,
		Status:      models.ChangeStatusPending,
	}
	if payload.Kind.TargetsUser() {
		userID := payload.UserID
		request.UserID = &userID
	} else {
		permissionID := payload.PermissionID
		request.PermissionID = &permissionID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateReferencesTx(tx, payload); err != nil {
			return err
		}
		if err := tx.Create(request).Error; err != nil {
			return apperrors.StoreUnavailable("create change request", err)
		}

		fields := requestAuditFields(request)
		fields["reason"] = request.Reason
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  requesterID,
			Resource: auditResourceChangeRequests,
			Action:   auditActionCreate,
			Allowed:  true,
			Context:  fields,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ChangeRequestTransitions.WithLabelValues(string(models.ChangeStatusPending)).Inc()
	s.log.Info("change request created",
		zap.Uint("request_id", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.Uint("requester_id", requesterID),
	)
	return request, nil
}

// GetPermissionChangeRequest loads a request by id.
func (s *ChangeRequestService) GetPermissionChangeRequest(ctx context.Context, requestID uint) (*models.PermissionChangeRequest, error) {
	ctx = ensureContext(ctx)
	return loadChangeRequestTx(s.db.WithContext(ctx), requestID)
}

// GetPendingPermissionChangeRequests lists pending requests, oldest first.
func (s *ChangeRequestService) GetPendingPermissionChangeRequests(ctx context.Context) ([]models.PermissionChangeRequest, error) {
	return s.ListPermissionChangeRequests(ctx, ChangeRequestFilter{Status: models.ChangeStatusPending})
}

// ListPermissionChangeRequests lists requests matching filter, oldest first.
func (s *ChangeRequestService) ListPermissionChangeRequests(ctx context.Context, filter ChangeRequestFilter) ([]models.PermissionChangeRequest, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.PermissionChangeRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}

	limit := filter.Limit
	if limit > maxChangeRequestPageSize {
		limit = maxChangeRequestPageSize
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	requests := []models.PermissionChangeRequest{}
	if err := query.Order("created_at ASC").Order("id ASC").Find(&requests).Error; err != nil {
		return nil, apperrors.StoreUnavailable("list change requests", err)
	}
	return requests, nil
}

// CountPending reports how many requests await a decision.
func (s *ChangeRequestService) CountPending(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.PermissionChangeRequest{}).
		Where("status = ?", models.ChangeStatusPending).
		Count(&total).Error; err != nil {
		return 0, apperrors.StoreUnavailable("count pending change requests", err)
	}
	return total, nil
}

// ApprovePermissionChangeRequest applies the requested mutation and marks the request
// approved in one transaction. Requesters can never approve their own requests, resolved or
// not. When the mutation fails the request stays pending and the refused attempt is audited.
func (s *ChangeRequestService) ApprovePermissionChangeRequest(ctx context.Context, requestID, approverID uint, comment string) (*models.PermissionChangeRequest, error) {
	ctx = ensureContext(ctx)

	request, err := s.approve(ctx, requestID, approverID, strings.TrimSpace(comment))
	if err != nil {
		if errors.Is(err, apperrors.ErrSelfApprovalForbidden) {
			metrics.SelfApprovalAttempts.Inc()
		}
		s.log.Info("change request approval refused",
			zap.Uint("request_id", requestID),
			zap.Uint("approver_id", approverID),
			zap.Error(err),
		)
		return nil, recordFailure(ctx, s.audit, s.log, AuditEntry{
			ActorID:  approverID,
			Resource: auditResourceChangeRequests,
			Action:   auditActionApprove,
			Context:  map[string]any{"change_request_id": requestID},
		}, err)
	}

	metrics.ChangeRequestTransitions.WithLabelValues(string(models.ChangeStatusApproved)).Inc()
	s.log.Info("change request approved",
		zap.Uint("request_id", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.Uint("approver_id", approverID),
	)
	return request, nil
}

func (s *ChangeRequestService) approve(ctx context.Context, requestID, approverID uint, comment string) (*models.PermissionChangeRequest, error) {
	if approverID == 0 {
		return nil, apperrors.InvalidInput("approver id is required", formatID(requestID))
	}
	request, err := loadChangeRequestTx(s.db.WithContext(ctx), requestID)
	if err != nil {
		return nil, err
	}
	// Self-approval is refused whatever the request's state.
	if approverID == request.RequesterID {
		return nil, apperrors.SelfApprovalForbidden(formatID(requestID))
	}
	if !request.IsPending() {
		return nil, apperrors.AlreadyResolved(formatID(requestID), string(request.Status))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mutation, err := s.applyMutationTx(tx, request, approverID)
		if err != nil {
			return err
		}

		if err := resolveTx(tx, request, models.ChangeStatusApproved, approverID, comment, s.now()); err != nil {
			return err
		}

		fields := requestAuditFields(request)
		fields["requester_id"] = request.RequesterID
		fields["comment"] = comment
		for k, v := range mutation {
			fields[k] = v
		}
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  approverID,
			Resource: auditResourceChangeRequests,
			Action:   auditActionApprove,
			Allowed:  true,
			Context:  fields,
		})
	})
	if err != nil {
		return nil, storeError("approve change request", err)
	}
	return request, nil
}

// applyMutationTx performs the requested change through the same helpers the profile and
// assignment stores use, returning audit fields describing it.
func (s *ChangeRequestService) applyMutationTx(tx *gorm.DB, request *models.PermissionChangeRequest, approverID uint) (map[string]any, error) {
	switch request.Kind {
	case models.ChangeAddPermission, models.ChangeRemovePermission:
		if request.PermissionID == nil {
			return nil, apperrors.InvalidInput("change request has no permission", formatID(request.ID))
		}
		if _, err := loadActiveProfileTx(tx, request.ProfileID); err != nil {
			return nil, err
		}

		var (
			diff PermissionDiff
			err  error
		)
		if request.Kind == models.ChangeAddPermission {
			diff, err = addPermissionTx(tx, request.ProfileID, *request.PermissionID)
		} else {
			diff, err = removePermissionTx(tx, request.ProfileID, *request.PermissionID)
		}
		if err != nil {
			return nil, err
		}
		return diff.auditFields(), nil

	case models.ChangeAssignProfile:
		if request.UserID == nil {
			return nil, apperrors.InvalidInput("change request has no user", formatID(request.ID))
		}
		binding, created, err := assignTx(tx, *request.UserID, request.ProfileID, approverID, s.now())
		if err != nil {
			return nil, err
		}
		fields := map[string]any{"binding_id": binding.ID}
		if !created {
			fields["note"] = assignmentNoteAlreadyActive
		}
		return fields, nil

	case models.ChangeRevokeProfile:
		if request.UserID == nil {
			return nil, apperrors.InvalidInput("change request has no user", formatID(request.ID))
		}
		binding, err := revokeTx(tx, *request.UserID, request.ProfileID, approverID, s.now())
		if err != nil {
			return nil, err
		}
		if binding == nil {
			return map[string]any{"note": assignmentNoteNotActive}, nil
		}
		return map[string]any{"binding_id": binding.ID}, nil
	}

	return nil, apperrors.InvalidInput("unsupported change kind", string(request.Kind))
}

// RejectPermissionChangeRequest closes a pending request without applying it. A comment is
// required. Requesters may withdraw their own requests this way.
func (s *ChangeRequestService) RejectPermissionChangeRequest(ctx context.Context, requestID, approverID uint, comment string) (*models.PermissionChangeRequest, error) {
	ctx = ensureContext(ctx)

	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, apperrors.InvalidInput("a comment is required to reject a change request", formatID(requestID))
	}

	request, err := s.reject(ctx, requestID, approverID, comment)
	if err != nil {
		return nil, recordFailure(ctx, s.audit, s.log, AuditEntry{
			ActorID:  approverID,
			Resource: auditResourceChangeRequests,
			Action:   auditActionReject,
			Context:  map[string]any{"change_request_id": requestID},
		}, err)
	}

	metrics.ChangeRequestTransitions.WithLabelValues(string(models.ChangeStatusRejected)).Inc()
	s.log.Info("change request rejected",
		zap.Uint("request_id", request.ID),
		zap.Uint("approver_id", approverID),
	)
	return request, nil
}

func (s *ChangeRequestService) reject(ctx context.Context, requestID, approverID uint, comment string) (*models.PermissionChangeRequest, error) {
	if approverID == 0 {
		return nil, apperrors.InvalidInput("approver id is required", formatID(requestID))
	}
	var request *models.PermissionChangeRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		request, err = loadChangeRequestTx(tx, requestID)
		if err != nil {
			return err
		}
		if !request.IsPending() {
			return apperrors.AlreadyResolved(formatID(requestID), string(request.Status))
		}

		if err := resolveTx(tx, request, models.ChangeStatusRejected, approverID, comment, s.now()); err != nil {
			return err
		}

		fields := requestAuditFields(request)
		fields["requester_id"] = request.RequesterID
		fields["comment"] = comment
		return s.audit.LogAccessTx(tx, AuditEntry{
			ActorID:  approverID,
			Resource: auditResourceChangeRequests,
			Action:   auditActionReject,
			Allowed:  true,
			Context:  fields,
		})
	})
	if err != nil {
		return nil, storeError("reject change request", err)
	}
	return request, nil
}

func loadChangeRequestTx(tx *gorm.DB, requestID uint) (*models.PermissionChangeRequest, error) {
	var request models.PermissionChangeRequest
	if err := tx.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("change request", formatID(requestID))
		}
		return nil, apperrors.StoreUnavailable("load change request", err)
	}
	return &request, nil
}

// resolveTx moves a pending request to status. The update is guarded on the pending state so
// that of two concurrent resolutions only one succeeds; the loser gets AlreadyResolved.
func resolveTx(tx *gorm.DB, request *models.PermissionChangeRequest, status models.ChangeStatus, approverID uint, comment string, now time.Time) error {
	resolvedAt := now.UTC()
	result := tx.Model(&models.PermissionChangeRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ChangeStatusPending).
		Updates(map[string]any{
			"status":      status,
			"approver_id": approverID,
			"resolved_at": resolvedAt,
			"comment":     comment,
		})
	if result.Error != nil {
		return apperrors.StoreUnavailable("resolve change request", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.AlreadyResolved(formatID(request.ID), "resolved")
	}

	request.Status = status
	request.ApproverID = &approverID
	request.ResolvedAt = &resolvedAt
	request.Comment = comment
	return nil
}

// validateReferencesTx checks that every entity a payload names exists. Targets of additive
// changes must also be active.
func validateReferencesTx(tx *gorm.DB, payload ChangeRequestPayload) error {
	profile, err := loadProfileTx(tx, payload.ProfileID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("unknown profile", formatID(payload.ProfileID))
		}
		return err
	}
	if !profile.IsActive && payload.Kind != models.ChangeRevokeProfile {
		return apperrors.InvalidInput("profile is inactive", formatID(payload.ProfileID))
	}

	if payload.Kind.TargetsUser() {
		var user models.User
		if err := tx.Select("id").First(&user, payload.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.InvalidInput("unknown user", formatID(payload.UserID))
			}
			return apperrors.StoreUnavailable("load user", err)
		}
		return nil
	}

	var permission models.Permission
	if err := tx.First(&permission, payload.PermissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.InvalidInput("unknown permission", formatID(payload.PermissionID))
		}
		return apperrors.StoreUnavailable("load permission", err)
	}
	if !permission.IsActive && payload.Kind == models.ChangeAddPermission {
		return apperrors.InvalidInput("permission is inactive", formatID(payload.PermissionID))
	}
	return nil
}

func requestAuditFields(request *models.PermissionChangeRequest) map[string]any {
	fields := map[string]any{
		"change_request_id": request.ID,
		"kind":              string(request.Kind),
		"profile_id":        request.ProfileID,
	}
	if request.PermissionID != nil {
		fields["permission_id"] = *request.PermissionID
	}
	if request.UserID != nil {
		fields["user_id"] = *request.UserID
	}
	return fields
}
