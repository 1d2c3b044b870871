package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/database"
	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

// TenantService provisions and manages tenants. Creating a tenant also seeds
// its system Owner role bound to the full catalog.
type TenantService struct {
	db          *gorm.DB
	audit       *AuditService
	invalidator SnapshotInvalidator
}

// NewTenantService constructs a TenantService using the provided database handle.
func NewTenantService(db *gorm.DB, audit *AuditService, invalidator SnapshotInvalidator) (*TenantService, error) {
	if db == nil {
		return nil, errors.New("tenant service: db is required")
	}
	return &TenantService{db: db, audit: audit, invalidator: invalidator}, nil
}

// Create provisions a new tenant with its default system role.
func (s *TenantService) Create(ctx context.Context, name string) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidation("tenant name is required")
	}

	tenant := &models.Tenant{Name: name, IsActive: true}
	if err := s.db.WithContext(ctx).Create(tenant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("tenant name already exists")
		}
		return nil, fmt.Errorf("tenant service: create tenant: %w", err)
	}

	if err := database.SeedTenantDefaults(s.db.WithContext(ctx), tenant.ID); err != nil {
		return nil, fmt.Errorf("tenant service: seed defaults: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenant.ID,
		Action:   "tenant.create",
		Resource: tenant.ID,
		Result:   "success",
		Metadata: map[string]any{"name": tenant.Name},
	})

	return tenant, nil
}

// Get loads one tenant by id.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("tenant not found")
		}
		return nil, fmt.Errorf("tenant service: load tenant: %w", err)
	}
	return &tenant, nil
}

// List returns all tenants ordered by creation date.
func (s *TenantService) List(ctx context.Context) ([]models.Tenant, error) {
	ctx = ensureContext(ctx)

	var tenants []models.Tenant
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("tenant service: list tenants: %w", err)
	}
	return tenants, nil
}

// SetActive enables or disables a tenant. Disabling drops the tenant's
// cached snapshots so in-flight tokens stop authorizing immediately.
func (s *TenantService) SetActive(ctx context.Context, tenantID string, active bool) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if tenant.IsActive == active {
		return tenant, nil
	}

	if err := s.db.WithContext(ctx).Model(tenant).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("tenant service: update tenant: %w", err)
	}
	tenant.IsActive = active

	if !active {
		if err := invalidateTenant(s.invalidator, ctx, tenantID); err != nil {
			return nil, fmt.Errorf("tenant service: invalidate snapshots: %w", err)
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TenantID: tenantID,
		Action:   "tenant.set_active",
		Resource: tenantID,
		Result:   "success",
		Metadata: map[string]any{"active": active},
	})

	return tenant, nil
}
