package models

import "time"

// User is the minimal identity record accessd needs to issue tokens and
// anchor role assignments. Profile management lives in the surrounding
// platform; accessd only reads what the decision engine requires.
type User struct {
	BaseModel

	Username    string `gorm:"not null;uniqueIndex:idx_users_username_tenant,priority:1" json:"username"`
	Email       string `gorm:"not null;uniqueIndex:idx_users_email_tenant,priority:1" json:"email"`
	Password    string `gorm:"not null" json:"-"`
	DisplayName string `json:"display_name"`

	// IsRoot marks platform operators who bypass permission evaluation.
	IsRoot   bool `gorm:"default:false" json:"is_root"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	TenantID string  `gorm:"type:uuid;not null;uniqueIndex:idx_users_username_tenant,priority:2;uniqueIndex:idx_users_email_tenant,priority:2;index" json:"tenant_id"`
	Tenant   *Tenant `json:"tenant,omitempty"`

	Assignments []UserRole `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
