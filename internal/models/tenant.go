package models

import "gorm.io/datatypes"

// Tenant is the multi-tenancy isolation unit. Every role, binding, and
// assignment belongs to exactly one tenant; only the permission catalog is
// shared across tenants.
type Tenant struct {
	BaseModel

	Name     string         `gorm:"uniqueIndex;not null" json:"name"`
	Settings datatypes.JSON `json:"settings"`
	IsActive bool           `gorm:"default:true" json:"is_active"`

	Roles []Role `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"roles,omitempty"`
	Users []User `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"users,omitempty"`
}
