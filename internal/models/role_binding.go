package models

import "gorm.io/datatypes"

// RoleBinding grants one permission to one role, optionally restricted by
// scope (structural limits such as queue membership or own-record-only) and
// conditions (attribute predicates such as time-of-day windows). Both
// payloads are opaque JSON documents interpreted only by the decision engine
// at evaluation time; the binding itself never validates their inner shape.
type RoleBinding struct {
	BaseModel

	RoleID       string      `gorm:"type:uuid;not null;index" json:"role_id"`
	Role         *Role       `json:"role,omitempty"`
	PermissionID string      `gorm:"type:uuid;not null;index" json:"permission_id"`
	Permission   *Permission `json:"permission,omitempty"`

	Scope      datatypes.JSON `json:"scope"`
	Conditions datatypes.JSON `json:"conditions"`

	// TenantID is denormalized from the owning role for query efficiency.
	// Write paths must keep it equal to the role's tenant; the two never diverge.
	TenantID string `gorm:"type:uuid;not null;index" json:"tenant_id"`
}

// TableName keeps the storage name aligned with the platform schema.
func (RoleBinding) TableName() string {
	return "role_permissions"
}
