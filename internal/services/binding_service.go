package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

// BindingService manages role-permission bindings. Scope and conditions are
// stored verbatim as JSON objects; their inner keys are interpreted by the
// decision engine only, so a binding written today can carry keys the engine
// learns to evaluate tomorrow.
type BindingService struct {
	db          *gorm.DB
	audit       *AuditService
	invalidator SnapshotInvalidator
}

// NewBindingService constructs a BindingService using the provided database handle.
func NewBindingService(db *gorm.DB, audit *AuditService, invalidator SnapshotInvalidator) (*BindingService, error) {
	if db == nil {
		return nil, errors.New("binding service: db is required")
	}
	return &BindingService{db: db, audit: audit, invalidator: invalidator}, nil
}

// GrantInput describes one binding to create.
type GrantInput struct {
	PermissionID string
	Scope        json.RawMessage
	Conditions   json.RawMessage
}

// Grant binds a permission to a role, optionally restricted by scope and
// conditions documents.
func (s *BindingService) Grant(ctx context.Context, tenantID, roleID string, input GrantInput) (*models.RoleBinding, error) {
	ctx = ensureContext(ctx)

	var binding *models.RoleBinding
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := lockRole(tx, tenantID, roleID)
		if err != nil {
			return err
		}

		created, err := createBinding(tx, role, input)
		if err != nil {
			return err
		}
		binding = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return nil, fmt.Errorf("binding service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "binding.grant",
		Resource: binding.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role_id":       roleID,
			"permission_id": binding.PermissionID,
		},
	})

	return binding, nil
}

// Revoke removes one binding from a role. Revoking a binding that does not
// exist in the tenant reports not found.
func (s *BindingService) Revoke(ctx context.Context, tenantID, roleID, bindingID string) error {
	ctx = ensureContext(ctx)

	var binding models.RoleBinding
	err := s.db.WithContext(ctx).
		First(&binding, "id = ? AND role_id = ? AND tenant_id = ?", bindingID, roleID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("binding not found")
		}
		return fmt.Errorf("binding service: load binding: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&binding).Error; err != nil {
		return fmt.Errorf("binding service: delete binding: %w", err)
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return fmt.Errorf("binding service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "binding.revoke",
		Resource: binding.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role_id":       roleID,
			"permission_id": binding.PermissionID,
		},
	})

	return nil
}

// ListForRole returns the role's bindings with their catalog entries loaded.
func (s *BindingService) ListForRole(ctx context.Context, tenantID, roleID string) ([]models.RoleBinding, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("binding service: load role: %w", err)
	}

	var bindings []models.RoleBinding
	err := s.db.WithContext(ctx).
		Preload("Permission").
		Where("role_id = ?", roleID).
		Order("created_at ASC").
		Find(&bindings).Error
	if err != nil {
		return nil, fmt.Errorf("binding service: list bindings: %w", err)
	}
	return bindings, nil
}

// Replace swaps the role's bindings for the provided set atomically. Either
// every new binding is written and every old one removed, or nothing changes.
// Replaying the same set is idempotent: the role ends in the same state and
// no partial grants are ever observable.
func (s *BindingService) Replace(ctx context.Context, tenantID, roleID string, inputs []GrantInput) ([]models.RoleBinding, error) {
	ctx = ensureContext(ctx)

	var replaced []models.RoleBinding
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := lockRole(tx, tenantID, roleID)
		if err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RoleBinding{}).Error; err != nil {
			return fmt.Errorf("binding service: clear bindings: %w", err)
		}

		for _, input := range inputs {
			binding, err := createBinding(tx, role, input)
			if err != nil {
				return err
			}
			replaced = append(replaced, *binding)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return nil, fmt.Errorf("binding service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "binding.replace",
		Resource: roleID,
		Result:   "success",
		Metadata: map[string]any{"binding_count": len(replaced)},
	})

	return replaced, nil
}

func lockRole(tx *gorm.DB, tenantID, roleID string) (*models.Role, error) {
	var role models.Role
	if err := tx.First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("binding service: load role: %w", err)
	}
	return &role, nil
}

func createBinding(tx *gorm.DB, role *models.Role, input GrantInput) (*models.RoleBinding, error) {
	if input.PermissionID == "" {
		return nil, apperrors.NewValidation("permission id is required")
	}

	var perm models.Permission
	if err := tx.First(&perm, "id = ?", input.PermissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("permission not found")
		}
		return nil, fmt.Errorf("binding service: load permission: %w", err)
	}

	scope, err := normaliseDocument("scope", input.Scope)
	if err != nil {
		return nil, err
	}
	conditions, err := normaliseDocument("conditions", input.Conditions)
	if err != nil {
		return nil, err
	}

	binding := &models.RoleBinding{
		RoleID:       role.ID,
		PermissionID: perm.ID,
		Scope:        scope,
		Conditions:   conditions,
		TenantID:     role.TenantID,
	}

	if err := tx.Create(binding).Error; err != nil {
		return nil, fmt.Errorf("binding service: create binding: %w", err)
	}
	binding.Permission = &perm
	return binding, nil
}

// normaliseDocument accepts an absent, null, or JSON-object payload. Any
// other shape is rejected before it reaches storage; the engine only ever
// sees objects or nothing.
func normaliseDocument(field string, raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, apperrors.NewValidation(fmt.Sprintf("%s must be valid JSON", field))
	}
	if trimmed[0] != '{' {
		return nil, apperrors.NewValidation(fmt.Sprintf("%s must be a JSON object", field))
	}
	return datatypes.JSON(trimmed), nil
}
