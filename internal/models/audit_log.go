package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned when code attempts to modify a written audit entry.
var ErrAuditImmutable = errors.New("access audit log entries are append-only")

// AccessAuditLog records an access check or a permission-lifecycle mutation. ID doubles as the
// insertion sequence and breaks ties between equal timestamps.
type AccessAuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
	ActorID   uint              `gorm:"not null;index" json:"actor_id"`
	Resource  string            `gorm:"size:64;not null;index:idx_access_audit_logs_resource_action" json:"resource"`
	Action    string            `gorm:"size:64;not null;index:idx_access_audit_logs_resource_action" json:"action"`
	Allowed   bool              `gorm:"not null;index" json:"allowed"`
	Context   datatypes.JSONMap `json:"context,omitempty"`
}

// BeforeUpdate rejects in-place modification.
func (a *AccessAuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete rejects removal through the ORM.
func (a *AccessAuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
