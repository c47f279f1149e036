package models

// Profile is a named role bundling a set of permissions. Level orders profiles for display
// only; it never implies that one profile inherits the permissions of another.
type Profile struct {
	BaseModel

	Code        string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Level       int    `gorm:"not null;default:0;index" json:"level"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`
}

// ProfilePermission grants a permission to a profile. The row's existence is the grant.
type ProfilePermission struct {
	ProfileID    uint `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	PermissionID uint `gorm:"primaryKey;autoIncrement:false;index" json:"permission_id"`

	Profile    *Profile    `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
	Permission *Permission `gorm:"foreignKey:PermissionID" json:"-"`
}
