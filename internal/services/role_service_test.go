package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

func TestRoleService_CreateAndList(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	role, err := svc.Create(context.Background(), tenant.ID, CreateRoleInput{
		Name:        "Agent",
		Description: "Handles tickets",
	})
	require.NoError(t, err)
	require.NotEmpty(t, role.ID)
	require.Equal(t, tenant.ID, role.TenantID)

	roles, err := svc.List(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, "Agent", roles[0].Name)
}

func TestRoleService_NameLengthLimit(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	long := strings.Repeat("x", 51)

	_, err = svc.Create(context.Background(), tenant.ID, CreateRoleInput{Name: long})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)

	role, err := svc.Create(context.Background(), tenant.ID, CreateRoleInput{Name: strings.Repeat("x", 50)})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), tenant.ID, role.ID, UpdateRoleInput{Name: long})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
}

func TestRoleService_DuplicateNameWithinTenant(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateRoleInput{Name: "Agent"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateRoleInput{Name: "Agent"})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
}

func TestRoleService_SameNameAcrossTenants(t *testing.T) {
	db := setupServiceDB(t)
	first := createTestTenant(t, db, "acme")
	second := createTestTenant(t, db, "globex")

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), first.ID, CreateRoleInput{Name: "Supervisor"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), second.ID, CreateRoleInput{Name: "Supervisor"})
	require.NoError(t, err)
}

func TestRoleService_CrossTenantLookupIsNotFound(t *testing.T) {
	db := setupServiceDB(t)
	first := createTestTenant(t, db, "acme")
	second := createTestTenant(t, db, "globex")

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	role, err := svc.Create(context.Background(), first.ID, CreateRoleInput{Name: "Agent"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), second.ID, role.ID)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestRoleService_SystemRoleRenameRejected(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	system := models.Role{Name: "Owner", IsSystem: true, TenantID: tenant.ID}
	require.NoError(t, db.Create(&system).Error)

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), tenant.ID, system.ID, UpdateRoleInput{Name: "Renamed"})
	require.ErrorIs(t, err, apperrors.ErrSystemProtected)

	desc := "Full tenant access"
	updated, err := svc.Update(context.Background(), tenant.ID, system.ID, UpdateRoleInput{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Owner", updated.Name)
	require.Equal(t, desc, updated.Description)
}

func TestRoleService_SystemRoleDeleteRejected(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	system := models.Role{Name: "Owner", IsSystem: true, TenantID: tenant.ID}
	require.NoError(t, db.Create(&system).Error)

	svc, err := NewRoleService(db, nil, nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), tenant.ID, system.ID)
	require.ErrorIs(t, err, apperrors.ErrSystemProtected)
}

func TestRoleService_DeleteRemovesBindingsAndAssignments(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")
	user := createTestUser(t, db, tenant.ID, "agent")
	perm := anyPermission(t, db)

	inv := &recordingInvalidator{}
	svc, err := NewRoleService(db, nil, inv)
	require.NoError(t, err)

	role, err := svc.Create(context.Background(), tenant.ID, CreateRoleInput{Name: "Agent"})
	require.NoError(t, err)

	binding := models.RoleBinding{RoleID: role.ID, PermissionID: perm.ID, TenantID: tenant.ID}
	require.NoError(t, db.Create(&binding).Error)
	assignment := models.UserRole{UserID: user.ID, RoleID: role.ID, TenantID: tenant.ID}
	require.NoError(t, db.Create(&assignment).Error)

	require.NoError(t, svc.Delete(context.Background(), tenant.ID, role.ID))

	var bindingCount, assignmentCount int64
	require.NoError(t, db.Model(&models.RoleBinding{}).Where("role_id = ?", role.ID).Count(&bindingCount).Error)
	require.NoError(t, db.Model(&models.UserRole{}).Where("role_id = ?", role.ID).Count(&assignmentCount).Error)
	require.Zero(t, bindingCount)
	require.Zero(t, assignmentCount)

	require.Equal(t, []string{tenant.ID}, inv.invalidated())
}
