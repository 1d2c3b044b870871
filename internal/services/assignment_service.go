package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

// AssignmentService manages user-role assignments. Users and roles must
// belong to the same tenant; an assignment crossing tenants is never created
// and lookups in the wrong tenant report not found.
type AssignmentService struct {
	db          *gorm.DB
	audit       *AuditService
	invalidator SnapshotInvalidator
}

// NewAssignmentService constructs an AssignmentService using the provided database handle.
func NewAssignmentService(db *gorm.DB, audit *AuditService, invalidator SnapshotInvalidator) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	return &AssignmentService{db: db, audit: audit, invalidator: invalidator}, nil
}

// Assign grants the role to the user. Assigning a role the user already
// holds reports a conflict.
func (s *AssignmentService) Assign(ctx context.Context, tenantID, userID, roleID string) (*models.UserRole, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND tenant_id = ?", userID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("assignment service: load user: %w", err)
	}

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("assignment service: load role: %w", err)
	}

	assignment := &models.UserRole{
		UserID:   user.ID,
		RoleID:   role.ID,
		TenantID: tenantID,
	}

	if err := s.db.WithContext(ctx).Create(assignment).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("user already holds this role")
		}
		return nil, fmt.Errorf("assignment service: create assignment: %w", err)
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return nil, fmt.Errorf("assignment service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		TenantID: tenantID,
		Action:   "assignment.create",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"role_name": role.Name},
	})

	return assignment, nil
}

// Unassign removes the role from the user. Removing an assignment that does
// not exist reports not found.
func (s *AssignmentService) Unassign(ctx context.Context, tenantID, userID, roleID string) error {
	ctx = ensureContext(ctx)

	var assignment models.UserRole
	err := s.db.WithContext(ctx).
		First(&assignment, "user_id = ? AND role_id = ? AND tenant_id = ?", userID, roleID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("assignment not found")
		}
		return fmt.Errorf("assignment service: load assignment: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&assignment).Error; err != nil {
		return fmt.Errorf("assignment service: delete assignment: %w", err)
	}

	if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
		return fmt.Errorf("assignment service: invalidate snapshots: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		TenantID: tenantID,
		Action:   "assignment.delete",
		Resource: roleID,
		Result:   "success",
	})

	return nil
}

// ListRolesForUser returns every role the user holds in the tenant.
func (s *AssignmentService) ListRolesForUser(ctx context.Context, tenantID, userID string) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND tenant_id = ?", userID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("assignment service: load user: %w", err)
	}

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.tenant_id = ?", userID, tenantID).
		Order("roles.created_at ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("assignment service: list roles: %w", err)
	}
	return roles, nil
}

// ListUsersForRole returns every user holding the role.
func (s *AssignmentService) ListUsersForRole(ctx context.Context, tenantID, roleID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ? AND tenant_id = ?", roleID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("role not found")
		}
		return nil, fmt.Errorf("assignment service: load role: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("assignment service: list users: %w", err)
	}
	return users, nil
}
