package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChangeKind enumerates the mutations a change request can carry.
type ChangeKind string

const (
	ChangeAddPermission    ChangeKind = "add_permission"
	ChangeRemovePermission ChangeKind = "remove_permission"
	ChangeAssignProfile    ChangeKind = "assign_profile"
	ChangeRevokeProfile    ChangeKind = "revoke_profile"
)

// TargetsUser reports whether the change acts on a user-profile binding.
func (k ChangeKind) TargetsUser() bool {
	return k == ChangeAssignProfile || k == ChangeRevokeProfile
}

// ChangeStatus is the workflow state of a change request.
type ChangeStatus string

const (
	ChangeStatusPending  ChangeStatus = "pending"
	ChangeStatusApproved ChangeStatus = "approved"
	ChangeStatusRejected ChangeStatus = "rejected"
)

// PermissionChangeRequest proposes a sensitive permission or assignment mutation that only
// takes effect once a different principal approves it.
type PermissionChangeRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RequesterID uint       `gorm:"not null;index" json:"requester_id"`
	Kind        ChangeKind `gorm:"size:32;not null" json:"kind"`

	ProfileID    uint  `gorm:"not null;index" json:"profile_id"`
	PermissionID *uint `json:"permission_id,omitempty"`
	UserID       *uint `gorm:"index" json:"user_id,omitempty"`

	Payload datatypes.JSONMap `json:"payload,omitempty"`
	Reason  string            `json:"reason,omitempty"`

	Status     ChangeStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ApproverID *uint        `json:"approver_id,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	Comment    string       `json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPending reports whether the request can still be resolved.
func (r PermissionChangeRequest) IsPending() bool {
	return r.Status == ChangeStatusPending
}
