package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole assigns a role to a user within a tenant. A user cannot hold the
// same role twice; cross-tenant assignments are rejected at write time.
type UserRole struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role,priority:1" json:"user_id"`
	RoleID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role,priority:2;index" json:"role_id"`

	// TenantID mirrors the role's tenant; see RoleBinding.TenantID.
	TenantID string `gorm:"type:uuid;not null;index" json:"tenant_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *UserRole) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
