package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/relaydesk/accessd/pkg/errors"
)

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "agent@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEqual(t, "correct-horse", user.Password)

	authed, err := svc.Authenticate(context.Background(), tenant.ID, "agent", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.NotNil(t, authed.LastLoginAt)
}

func TestUserService_AuthenticateWrongPassword(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "agent@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), tenant.ID, "agent", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserService_AuthenticateUnknownUser(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), tenant.ID, "ghost", "anything")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserService_AuthenticateDeactivatedUser(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "agent@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.SetActive(context.Background(), tenant.ID, user.ID, false)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), tenant.ID, "agent", "correct-horse")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserService_ShortPasswordRejected(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "agent@example.com",
		Password: "short",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
}

func TestUserService_DuplicateUsername(t *testing.T) {
	db := setupServiceDB(t)
	tenant := createTestTenant(t, db, "acme")

	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "agent@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenant.ID, CreateUserInput{
		Username: "agent",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrConflict.Code, apperrors.FromError(err).Code)
}
