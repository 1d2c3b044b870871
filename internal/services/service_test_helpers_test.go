package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/database/testutil"
	"github.com/relaydesk/accessd/internal/models"
)

// recordingInvalidator captures which tenants had their snapshots dropped.
type recordingInvalidator struct {
	mu      sync.Mutex
	tenants []string
	err     error
}

func (r *recordingInvalidator) InvalidateTenant(_ context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func (r *recordingInvalidator) invalidated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithSeedCatalog())
}

func createTestTenant(t *testing.T, db *gorm.DB, name string) models.Tenant {
	t.Helper()
	tenant := models.Tenant{Name: name, IsActive: true}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}

func createTestUser(t *testing.T, db *gorm.DB, tenantID, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		IsActive: true,
		TenantID: tenantID,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func anyPermission(t *testing.T, db *gorm.DB) models.Permission {
	t.Helper()
	var perm models.Permission
	require.NoError(t, db.First(&perm).Error)
	return perm
}
