package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaydesk/accessd/internal/models"
	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

func setupBindingTest(t *testing.T) (*BindingService, *recordingInvalidator, models.Tenant, models.Role, models.Permission) {
	t.Helper()

	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")
	role := models.Role{Name: "Agent", TenantID: tenant.ID}
	require.NoError(t, db.Create(&role).Error)
	perm := anyPermission(t, db)

	inv := &recordingInvalidator{}
	svc, err := NewBindingService(db, nil, inv)
	require.NoError(t, err)

	return svc, inv, tenant, role, perm
}

func TestBindingService_GrantWithScope(t *testing.T) {
	svc, inv, tenant, role, perm := setupBindingTest(t)

	binding, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{
		PermissionID: perm.ID,
		Scope:        json.RawMessage(`{"queueIds":[1,2]}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, binding.ID)
	require.Equal(t, tenant.ID, binding.TenantID)
	require.JSONEq(t, `{"queueIds":[1,2]}`, string(binding.Scope))
	require.Empty(t, binding.Conditions)

	require.Equal(t, []string{tenant.ID}, inv.invalidated())
}

func TestBindingService_GrantRejectsNonObjectDocuments(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	for _, payload := range []string{`[1,2]`, `"text"`, `42`, `{not json`} {
		_, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{
			PermissionID: perm.ID,
			Scope:        json.RawMessage(payload),
		})
		require.Error(t, err, "payload %s", payload)
		require.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
	}
}

func TestBindingService_GrantNullDocumentsStoreNothing(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	binding, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{
		PermissionID: perm.ID,
		Scope:        json.RawMessage(`null`),
		Conditions:   json.RawMessage(` `),
	})
	require.NoError(t, err)
	require.Empty(t, binding.Scope)
	require.Empty(t, binding.Conditions)
}

func TestBindingService_GrantUnknownPermission(t *testing.T) {
	svc, _, tenant, role, _ := setupBindingTest(t)

	_, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{
		PermissionID: "00000000-0000-0000-0000-000000000000",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestBindingService_GrantCrossTenantRole(t *testing.T) {
	svc, _, _, role, perm := setupBindingTest(t)

	_, err := svc.Grant(context.Background(), "other-tenant", role.ID, GrantInput{
		PermissionID: perm.ID,
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestBindingService_RevokeAbsentBinding(t *testing.T) {
	svc, _, tenant, role, _ := setupBindingTest(t)

	err := svc.Revoke(context.Background(), tenant.ID, role.ID, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestBindingService_RevokeRemovesBinding(t *testing.T) {
	svc, inv, tenant, role, perm := setupBindingTest(t)

	binding, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{PermissionID: perm.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), tenant.ID, role.ID, binding.ID))

	bindings, err := svc.ListForRole(context.Background(), tenant.ID, role.ID)
	require.NoError(t, err)
	require.Empty(t, bindings)

	require.Equal(t, []string{tenant.ID, tenant.ID}, inv.invalidated())
}

func TestBindingService_ReplaceSwapsAtomically(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	_, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{PermissionID: perm.ID})
	require.NoError(t, err)

	replaced, err := svc.Replace(context.Background(), tenant.ID, role.ID, []GrantInput{
		{PermissionID: perm.ID, Scope: json.RawMessage(`{"onlyOwn":true}`)},
	})
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	require.JSONEq(t, `{"onlyOwn":true}`, string(replaced[0].Scope))

	bindings, err := svc.ListForRole(context.Background(), tenant.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
}

func TestBindingService_ReplaceRollsBackOnFailure(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	original, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{PermissionID: perm.ID})
	require.NoError(t, err)

	_, err = svc.Replace(context.Background(), tenant.ID, role.ID, []GrantInput{
		{PermissionID: perm.ID},
		{PermissionID: "00000000-0000-0000-0000-000000000000"},
	})
	require.Error(t, err)

	// the failed replace must leave the original set untouched
	bindings, err := svc.ListForRole(context.Background(), tenant.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	require.Equal(t, original.ID, bindings[0].ID)
}

func TestBindingService_ReplaceIsIdempotent(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	inputs := []GrantInput{
		{PermissionID: perm.ID, Scope: json.RawMessage(`{"queueIds":[7]}`)},
	}

	first, err := svc.Replace(context.Background(), tenant.ID, role.ID, inputs)
	require.NoError(t, err)
	second, err := svc.Replace(context.Background(), tenant.ID, role.ID, inputs)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	require.Equal(t, first[0].PermissionID, second[0].PermissionID)
	require.JSONEq(t, string(first[0].Scope), string(second[0].Scope))

	bindings, err := svc.ListForRole(context.Background(), tenant.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
}

func TestBindingService_ReplaceWithEmptySetClears(t *testing.T) {
	svc, _, tenant, role, perm := setupBindingTest(t)

	_, err := svc.Grant(context.Background(), tenant.ID, role.ID, GrantInput{PermissionID: perm.ID})
	require.NoError(t, err)

	replaced, err := svc.Replace(context.Background(), tenant.ID, role.ID, nil)
	require.NoError(t, err)
	require.Empty(t, replaced)

	bindings, err := svc.ListForRole(context.Background(), tenant.ID, role.ID)
	require.NoError(t, err)
	require.Empty(t, bindings)
}
