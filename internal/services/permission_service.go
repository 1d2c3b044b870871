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

// PermissionService manages the global (resource, action) catalog. The
// catalog is shared by all tenants, so destructive changes invalidate the
// snapshots of every tenant that had a binding to the affected entry.
type PermissionService struct {
	db          *gorm.DB
	audit       *AuditService
	invalidator SnapshotInvalidator
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB, audit *AuditService, invalidator SnapshotInvalidator) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{db: db, audit: audit, invalidator: invalidator}, nil
}

// CreatePermissionInput describes the payload accepted by Create.
type CreatePermissionInput struct {
	Resource    string
	Action      string
	Description string
}

// Create registers a new catalog entry.
func (s *PermissionService) Create(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	resource := strings.TrimSpace(input.Resource)
	action := strings.TrimSpace(input.Action)
	if resource == "" {
		return nil, apperrors.NewValidation("resource is required")
	}
	if action == "" {
		return nil, apperrors.NewValidation("action is required")
	}

	perm := &models.Permission{
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(input.Description),
	}

	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict(fmt.Sprintf("permission %s already exists", perm.Key()))
		}
		return nil, fmt.Errorf("permission service: create permission: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.create",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{"key": perm.Key()},
	})

	return perm, nil
}

// Get loads one catalog entry by id.
func (s *PermissionService) Get(ctx context.Context, permissionID string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, "id = ?", permissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("permission not found")
		}
		return nil, fmt.Errorf("permission service: load permission: %w", err)
	}
	return &perm, nil
}

// List returns the full catalog ordered by resource then action.
func (s *PermissionService) List(ctx context.Context) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	var perms []models.Permission
	if err := s.db.WithContext(ctx).Order("resource ASC, action ASC").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("permission service: list permissions: %w", err)
	}
	return perms, nil
}

// UpdateDescription edits the human-readable description of a catalog entry.
// The (resource, action) pair itself is immutable once created; bindings and
// audit history reference it by meaning.
func (s *PermissionService) UpdateDescription(ctx context.Context, permissionID, description string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	perm, err := s.Get(ctx, permissionID)
	if err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if description == perm.Description {
		return perm, nil
	}

	if err := s.db.WithContext(ctx).Model(perm).Update("description", description).Error; err != nil {
		return nil, fmt.Errorf("permission service: update permission: %w", err)
	}
	perm.Description = description

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.update",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{"key": perm.Key()},
	})

	return perm, nil
}

// Delete removes a non-system catalog entry together with any bindings that
// reference it, then invalidates every tenant that held such a binding.
func (s *PermissionService) Delete(ctx context.Context, permissionID string) error {
	ctx = ensureContext(ctx)

	perm, err := s.Get(ctx, permissionID)
	if err != nil {
		return err
	}

	if perm.IsSystem {
		return apperrors.ErrSystemProtected
	}

	var tenantIDs []string
	err = s.db.WithContext(ctx).
		Model(&models.RoleBinding{}).
		Distinct("tenant_id").
		Where("permission_id = ?", perm.ID).
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return fmt.Errorf("permission service: collect affected tenants: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", perm.ID).Delete(&models.RoleBinding{}).Error; err != nil {
			return fmt.Errorf("permission service: delete bindings: %w", err)
		}
		if err := tx.Delete(perm).Error; err != nil {
			return fmt.Errorf("permission service: delete permission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, tenantID := range tenantIDs {
		if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
			return fmt.Errorf("permission service: invalidate snapshots: %w", err)
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.delete",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{"key": perm.Key(), "affected_tenants": len(tenantIDs)},
	})

	return nil
}
