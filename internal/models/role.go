package models

// Role is a named, tenant-scoped bundle of permission bindings. Role names
// are unique within a tenant; two tenants may each have a "Supervisor".
type Role struct {
	BaseModel

	Name        string `gorm:"not null;uniqueIndex:idx_roles_name_tenant,priority:1" json:"name"`
	Description string `json:"description"`

	// IsSystem roles (e.g. the seeded Owner role) cannot be renamed or deleted
	// by tenant administrators.
	IsSystem bool `gorm:"default:false" json:"is_system"`

	TenantID string  `gorm:"type:uuid;not null;uniqueIndex:idx_roles_name_tenant,priority:2;index" json:"tenant_id"`
	Tenant   *Tenant `json:"tenant,omitempty"`

	Bindings    []RoleBinding `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"bindings,omitempty"`
	Assignments []UserRole    `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
