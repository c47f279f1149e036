package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/auditctx"
	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/metrics"
)

const maxAuditPageSize = 1000

// AuditEntry captures a single access check or permission-lifecycle event.
type AuditEntry struct {
	ActorID  uint
	Resource string
	Action   string
	Allowed  bool
	Context  map[string]any
}

// AuditFilter narrows GetAccessLogs. Zero values disable a filter.
type AuditFilter struct {
	ActorID  *uint
	Resource string
	Action   string
	Allowed  *bool
	Since    *time.Time
	Until    *time.Time

	// Limit caps the number of rows returned; values above 1000 are clamped.
	Limit  int
	Offset int
}

// AuditService appends to and reads the access audit log. It exposes no update or delete.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB, opts ...Option) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	o := applyOptions("audit", opts)
	return &AuditService{db: db, log: o.log, now: o.now}, nil
}

// LogAccess appends an entry. Write failures are returned, never swallowed.
func (s *AuditService) LogAccess(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)
	return s.LogAccessTx(s.db.WithContext(ctx), entry)
}

// LogAccessTx appends an entry through tx so it commits or rolls back together with the
// caller's own writes.
func (s *AuditService) LogAccessTx(tx *gorm.DB, entry AuditEntry) error {
	resource := strings.TrimSpace(entry.Resource)
	action := strings.TrimSpace(entry.Action)
	if resource == "" || action == "" {
		return apperrors.InvalidInput("audit entry requires resource and action", "")
	}

	row := models.AccessAuditLog{
		CreatedAt: s.now().UTC(),
		ActorID:   entry.ActorID,
		Resource:  resource,
		Action:    action,
		Allowed:   entry.Allowed,
		Context:   buildAuditContext(tx.Statement.Context, entry.Context),
	}

	if err := tx.Create(&row).Error; err != nil {
		metrics.AuditWriteFailures.Inc()
		s.log.Error("audit write failed",
			zap.Uint("actor_id", entry.ActorID),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
		return apperrors.StoreUnavailable("write audit entry", err)
	}
	return nil
}

// GetAccessLogs returns entries matching filter in write order: timestamp, then insertion
// sequence.
func (s *AuditService) GetAccessLogs(ctx context.Context, filter AuditFilter) ([]models.AccessAuditLog, error) {
	ctx = ensureContext(ctx)

	query := applyAuditFilter(s.db.WithContext(ctx).Model(&models.AccessAuditLog{}), filter)

	limit := filter.Limit
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	logs := []models.AccessAuditLog{}
	if err := query.Order("created_at ASC").Order("id ASC").Find(&logs).Error; err != nil {
		return nil, apperrors.StoreUnavailable("list audit logs", err)
	}
	return logs, nil
}

// CountAccessLogs returns how many entries match filter, ignoring paging.
func (s *AuditService) CountAccessLogs(ctx context.Context, filter AuditFilter) (int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	query := applyAuditFilter(s.db.WithContext(ctx).Model(&models.AccessAuditLog{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return 0, apperrors.StoreUnavailable("count audit logs", err)
	}
	return total, nil
}

func applyAuditFilter(query *gorm.DB, filter AuditFilter) *gorm.DB {
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if resource := strings.TrimSpace(filter.Resource); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if filter.Allowed != nil {
		query = query.Where("allowed = ?", *filter.Allowed)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Until != nil {
		query = query.Where("created_at <= ?", filter.Until.UTC())
	}
	return query
}

// buildAuditContext merges request metadata carried by ctx with the entry's own fields. Entry
// fields win on conflicts.
func buildAuditContext(ctx context.Context, fields map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if actor, ok := auditctx.FromContext(ctx); ok {
		for k, v := range actor.Fields() {
			out[k] = v
		}
	}
	for k, v := range fields {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
