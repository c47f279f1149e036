package models

// Permission is an atomic (resource, action) capability. Rows are created by seeding only and
// are soft-deactivated instead of deleted once referenced by a profile.
type Permission struct {
	BaseModel

	Resource    string `gorm:"size:64;not null;uniqueIndex:idx_permissions_resource_action" json:"resource"`
	Action      string `gorm:"size:64;not null;uniqueIndex:idx_permissions_resource_action" json:"action"`
	Description string `json:"description"`
	Category    string `gorm:"size:64;index" json:"category"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`
}

// Key renders the permission as "resource:action".
func (p Permission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

// PermissionKey joins a resource and an action into the canonical key form.
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}
