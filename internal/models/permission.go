package models

// Permission is one (resource, action) pair in the global catalog. The
// catalog is shared infrastructure across all tenants; only its use through
// role bindings is tenant-scoped.
type Permission struct {
	BaseModel

	Resource    string `gorm:"not null;uniqueIndex:idx_permissions_resource_action,priority:1" json:"resource"`
	Action      string `gorm:"not null;uniqueIndex:idx_permissions_resource_action,priority:2" json:"action"`
	Description string `json:"description"`

	// IsSystem permissions are seeded at bootstrap and protected from
	// deletion through normal flows.
	IsSystem bool `gorm:"default:false" json:"is_system"`

	Bindings []RoleBinding `gorm:"foreignKey:PermissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Key returns the canonical "resource:action" form used in logs and route guards.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}
