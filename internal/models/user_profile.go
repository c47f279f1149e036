package models

import (
	"fmt"
	"time"
)

// UserProfile binds a user to a profile. Revocation closes the row; it is never deleted.
type UserProfile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_profiles_user_profile" json:"user_id"`
	ProfileID  uint      `gorm:"not null;index:idx_user_profiles_user_profile" json:"profile_id"`
	Profile    *Profile  `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`

	RevokedBy *uint      `json:"revoked_by,omitempty"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`

	// ActiveKey is set while the binding is active and cleared on revocation. The unique
	// index keeps at most one active binding per (user, profile); NULLs never collide.
	ActiveKey *string `gorm:"size:64;uniqueIndex" json:"-"`
}

// IsActive reports whether the binding has not been revoked.
func (b UserProfile) IsActive() bool {
	return b.RevokedAt == nil
}

// ActiveBindingKey returns the value stored in ActiveKey for an active binding.
func ActiveBindingKey(userID, profileID uint) string {
	return fmt.Sprintf("%d:%d", userID, profileID)
}
