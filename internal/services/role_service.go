package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

// maxRoleNameLength bounds role names at write time regardless of caller.
const maxRoleNameLength = 50

// RoleService manages tenant-scoped roles. Every lookup is filtered by tenant
// id; a role that exists in another tenant is reported as not found, never as
// forbidden.
type RoleService struct {
	db          *gorm.DB
	audit       *AuditService
	invalidator SnapshotInvalidator
}

// NewRoleService constructs a RoleService using the provided database handle.
func NewRoleService(db *gorm.DB, audit *AuditService, invalidator SnapshotInvalidator) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db, audit: audit, invalidator: invalidator}, nil
}

// CreateRoleInput describes the payload accepted by Create.
type CreateRoleInput struct {
	Name        string
	Description string
}

// UpdateRoleInput describes mutable fields on a role.
type UpdateRoleInput struct {
	Name        string
	Description *string
}

// Create registers a new role inside the tenant.
func (s *RoleService) Create(ctx context.Context, tenantID string, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidation("role name is required")
	}
	if len(name) > maxRoleNameLength {
		return nil, apperrors.NewValidation("role name must be at most 50 characters")
	}

	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		TenantID:    tenantID,
	}

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("role name already exists in this tenant")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "role.create",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"name": role.Name},
	})

	return role, nil
}

// Get loads one role within the tenant.
func (s *RoleService) Get(ctx context.Context, tenantID, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).
		Preload("Bindings").
		Preload("Bindings.Permission").
		First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// List returns all roles in the tenant ordered by creation date.
func (s *RoleService) List(ctx context.Context, tenantID string) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// Update modifies role metadata. System roles keep their name; their
// description may still be edited.
func (s *RoleService) Update(ctx context.Context, tenantID, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
		if role.IsSystem {
			return nil, apperrors.ErrSystemProtected
		}
		if len(name) > maxRoleNameLength {
			return nil, apperrors.NewValidation("role name must be at most 50 characters")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != role.Description {
			updates["description"] = desc
		}
	}

	if len(updates) == 0 {
		return &role, nil
	}

	if err := s.db.WithContext(ctx).Model(&role).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("role name already exists in this tenant")
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		return nil, fmt.Errorf("role service: reload role: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "role.update",
		Resource: role.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &role, nil
}

// Delete removes a non-system role together with its bindings and
// assignments, then drops the tenant's cached snapshots.
func (s *RoleService) Delete(ctx context.Context, tenantID, roleID string) error {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("role not found")
		}
		return fmt.Errorf("role service: load role: %w", err)
	}

	if role.IsSystem {
		return apperrors.ErrSystemProtected
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RoleBinding{}).Error; err != nil {
			return fmt.Errorf("role service: delete bindings: %w", err)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("role service: delete assignments: %w", err)
		}
		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("role service: delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return fmt.Errorf("role service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "role.delete",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"name": role.Name},
	})

	return nil
}

func (s *RoleService) requireTenant(ctx context.Context, tenantID string) error {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Select("id", "is_active").First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("tenant not found")
		}
		return fmt.Errorf("role service: load tenant: %w", err)
	}
	if !tenant.IsActive {
		return apperrors.NewValidation("tenant is deactivated")
	}
	return nil
}
