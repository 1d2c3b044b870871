package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
	"github.com/relaydesk/accessd/pkg/crypto"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

// UserService manages the identity records accessd issues tokens for.
type UserService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewUserService constructs a UserService using the provided database handle.
func NewUserService(db *gorm.DB, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, audit: audit}, nil
}

// CreateUserInput describes the payload accepted by Create.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	IsRoot      bool
}

// Create registers a new user inside the tenant.
func (s *UserService) Create(ctx context.Context, tenantID string, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" {
		return nil, apperrors.NewValidation("username is required")
	}
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidation("password must be at least 8 characters")
	}

	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("tenant not found")
		}
		return nil, fmt.Errorf("user service: load tenant: %w", err)
	}
	if !tenant.IsActive {
		return nil, apperrors.NewValidation("tenant is deactivated")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsRoot:      input.IsRoot,
		IsActive:    true,
		TenantID:    tenantID,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("username or email already exists")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		TenantID: tenantID,
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
	})

	return user, nil
}

// Get loads one user within the tenant.
func (s *UserService) Get(ctx context.Context, tenantID, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND tenant_id = ?", userID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// List returns the tenant's users ordered by username.
func (s *UserService) List(ctx context.Context, tenantID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// Authenticate verifies the username and password within the tenant. Unknown
// users, wrong passwords, and deactivated accounts all return the same
// credential error.
func (s *UserService) Authenticate(ctx context.Context, tenantID, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		First(&user, "username = ? AND tenant_id = ?", strings.TrimSpace(username), tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.Password, password) {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &user.ID,
			Username: user.Username,
			TenantID: tenantID,
			Action:   "user.login",
			Result:   "failure",
			Reason:   "invalid_credentials",
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", &now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		TenantID: tenantID,
		Action:   "user.login",
		Result:   "success",
	})

	return &user, nil
}

// SetActive toggles whether the user can authenticate and receive grants.
func (s *UserService) SetActive(ctx context.Context, tenantID, userID string, active bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if user.IsActive == active {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	user.IsActive = active

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		TenantID: tenantID,
		Action:   "user.set_active",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{"active": active},
	})

	return user, nil
}
