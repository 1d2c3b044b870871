package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
)

// RoleGrant is one role held by the user within the tenant.
type RoleGrant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsSystem bool   `json:"is_system"`
}

// BindingGrant is one role-permission binding flattened for evaluation.
// Scope and Conditions stay in their raw persisted form so snapshots remain
// serializable; the engine decodes them at evaluation time.
type BindingGrant struct {
	ID       string `json:"id"`
	RoleID   string `json:"role_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`

	Scope      datatypes.JSON `json:"scope,omitempty"`
	Conditions datatypes.JSON `json:"conditions,omitempty"`
}

// Snapshot is everything the engine needs to decide one request: the user's
// standing, their roles in the tenant, and those roles' bindings. It is a
// pure value; re-evaluating the same snapshot always yields the same decision.
type Snapshot struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	UserFound bool   `json:"user_found"`
	IsRoot    bool   `json:"is_root"`

	Roles    []RoleGrant    `json:"roles"`
	Bindings []BindingGrant `json:"bindings"`
}

// Loader resolves decision snapshots. Implementations must block until the
// data is fully loaded; the engine never defaults to allow while data is in
// flight.
type Loader interface {
	LoadSnapshot(ctx context.Context, userID, tenantID string) (*Snapshot, error)
}

// GormLoader loads snapshots from the relational store.
type GormLoader struct {
	db *gorm.DB
}

// NewGormLoader constructs a Loader backed by the provided database.
func NewGormLoader(db *gorm.DB) (*GormLoader, error) {
	if db == nil {
		return nil, errors.New("authz loader: db is required")
	}
	return &GormLoader{db: db}, nil
}

// LoadSnapshot resolves the user's roles within the tenant and all bindings
// those roles carry, joined to the permission catalog. A missing or inactive
// user yields an empty snapshot rather than an error; only infrastructure
// failures propagate.
func (l *GormLoader) LoadSnapshot(ctx context.Context, userID, tenantID string) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	if userID == "" || tenantID == "" {
		return nil, errors.New("authz loader: user id and tenant id are required")
	}

	snap := &Snapshot{UserID: userID, TenantID: tenantID}

	var tenant models.Tenant
	err := l.db.WithContext(ctx).
		Select("id", "is_active").
		First(&tenant, "id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz loader: load tenant: %w", err)
	}
	if !tenant.IsActive {
		return snap, nil
	}

	var user models.User
	err = l.db.WithContext(ctx).
		First(&user, "id = ? AND tenant_id = ?", userID, tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz loader: load user: %w", err)
	}

	if !user.IsActive {
		return snap, nil
	}

	snap.UserFound = true
	snap.IsRoot = user.IsRoot

	var roles []models.Role
	err = l.db.WithContext(ctx).
		Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND user_roles.tenant_id = ? AND roles.tenant_id = ?", userID, tenantID, tenantID).
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("authz loader: load roles: %w", err)
	}

	if len(roles) == 0 {
		return snap, nil
	}

	roleIDs := make([]string, 0, len(roles))
	for _, role := range roles {
		snap.Roles = append(snap.Roles, RoleGrant{ID: role.ID, Name: role.Name, IsSystem: role.IsSystem})
		roleIDs = append(roleIDs, role.ID)
	}

	var bindings []models.RoleBinding
	err = l.db.WithContext(ctx).
		Preload("Permission").
		Where("role_id IN ? AND tenant_id = ?", roleIDs, tenantID).
		Find(&bindings).Error
	if err != nil {
		return nil, fmt.Errorf("authz loader: load bindings: %w", err)
	}

	for _, binding := range bindings {
		if binding.Permission == nil {
			// binding without a catalog row grants nothing
			continue
		}
		snap.Bindings = append(snap.Bindings, BindingGrant{
			ID:         binding.ID,
			RoleID:     binding.RoleID,
			Resource:   binding.Permission.Resource,
			Action:     binding.Permission.Action,
			Scope:      binding.Scope,
			Conditions: binding.Conditions,
		})
	}

	return snap, nil
}
