package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/relaydesk/accessd/internal/database/testutil"
	"github.com/relaydesk/accessd/internal/handlers"
	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/models"
	"github.com/relaydesk/accessd/internal/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// newRoleRouter wires the role handler behind a stub identity so tests can
// exercise the HTTP surface without a real token.
func newRoleRouter(t *testing.T) (*gin.Engine, *gorm.DB, *models.Tenant) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedCatalog())

	tenant := &models.Tenant{Name: "acme", IsActive: true}
	require.NoError(t, db.Create(tenant).Error)

	roleSvc, err := services.NewRoleService(db, nil, nil)
	require.NoError(t, err)
	bindingSvc, err := services.NewBindingService(db, nil, nil)
	require.NoError(t, err)

	handler := handlers.NewRoleHandler(roleSvc, bindingSvc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, "test-user")
		c.Set(middleware.CtxTenantIDKey, tenant.ID)
	})

	r.POST("/api/roles", handler.Create)
	r.GET("/api/roles", handler.List)
	r.GET("/api/roles/:id", handler.Get)
	r.PATCH("/api/roles/:id", handler.Update)
	r.DELETE("/api/roles/:id", handler.Delete)
	r.GET("/api/roles/:id/bindings", handler.ListBindings)
	r.POST("/api/roles/:id/bindings", handler.Grant)
	r.PUT("/api/roles/:id/bindings", handler.ReplaceBindings)
	r.DELETE("/api/roles/:id/bindings/:bindingId", handler.Revoke)

	return r, db, tenant
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoleHandlerLifecycle(t *testing.T) {
	r, _, _ := newRoleRouter(t)

	created := doJSON(t, r, http.MethodPost, "/api/roles", map[string]string{
		"name":        "Agent",
		"description": "Front-line support",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	var role models.Role
	env := decodeEnvelope(t, created)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &role))
	require.Equal(t, "Agent", role.Name)
	require.NotEmpty(t, role.ID)

	list := doJSON(t, r, http.MethodGet, "/api/roles", nil)
	require.Equal(t, http.StatusOK, list.Code)
	require.Contains(t, list.Body.String(), "Agent")

	renamed := doJSON(t, r, http.MethodPatch, "/api/roles/"+role.ID, map[string]string{
		"name": "Senior Agent",
	})
	require.Equal(t, http.StatusOK, renamed.Code, renamed.Body.String())
	require.Contains(t, renamed.Body.String(), "Senior Agent")

	deleted := doJSON(t, r, http.MethodDelete, "/api/roles/"+role.ID, nil)
	require.Equal(t, http.StatusOK, deleted.Code)

	missing := doJSON(t, r, http.MethodGet, "/api/roles/"+role.ID, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRoleHandlerCreateValidation(t *testing.T) {
	r, _, _ := newRoleRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/roles", map[string]string{
		"description": "no name",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestRoleHandlerBindingFlow(t *testing.T) {
	r, db, _ := newRoleRouter(t)

	created := doJSON(t, r, http.MethodPost, "/api/roles", map[string]string{"name": "Agent"})
	require.Equal(t, http.StatusCreated, created.Code)
	var role models.Role
	env := decodeEnvelope(t, created)
	require.NoError(t, json.Unmarshal(env.Data, &role))

	var perm models.Permission
	require.NoError(t, db.First(&perm, "resource = ? AND action = ?", "tickets", "read").Error)

	granted := doJSON(t, r, http.MethodPost, "/api/roles/"+role.ID+"/bindings", map[string]any{
		"permission_id": perm.ID,
		"scope":         map[string]any{"queueIds": []int{1, 2}},
	})
	require.Equal(t, http.StatusCreated, granted.Code, granted.Body.String())

	var binding models.RoleBinding
	env = decodeEnvelope(t, granted)
	require.NoError(t, json.Unmarshal(env.Data, &binding))
	require.Equal(t, role.ID, binding.RoleID)

	listed := doJSON(t, r, http.MethodGet, "/api/roles/"+role.ID+"/bindings", nil)
	require.Equal(t, http.StatusOK, listed.Code)
	require.Contains(t, listed.Body.String(), "queueIds")

	var writePerm models.Permission
	require.NoError(t, db.First(&writePerm, "resource = ? AND action = ?", "tickets", "write").Error)

	replaced := doJSON(t, r, http.MethodPut, "/api/roles/"+role.ID+"/bindings", map[string]any{
		"bindings": []map[string]any{
			{"permission_id": perm.ID},
			{"permission_id": writePerm.ID},
		},
	})
	require.Equal(t, http.StatusOK, replaced.Code, replaced.Body.String())

	var bindings []models.RoleBinding
	env = decodeEnvelope(t, replaced)
	require.NoError(t, json.Unmarshal(env.Data, &bindings))
	require.Len(t, bindings, 2)

	revoked := doJSON(t, r, http.MethodDelete, "/api/roles/"+role.ID+"/bindings/"+bindings[0].ID, nil)
	require.Equal(t, http.StatusOK, revoked.Code)

	missing := doJSON(t, r, http.MethodDelete, "/api/roles/"+role.ID+"/bindings/"+bindings[0].ID, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRoleHandlerRejectsNonObjectScope(t *testing.T) {
	r, db, _ := newRoleRouter(t)

	created := doJSON(t, r, http.MethodPost, "/api/roles", map[string]string{"name": "Agent"})
	require.Equal(t, http.StatusCreated, created.Code)
	var role models.Role
	env := decodeEnvelope(t, created)
	require.NoError(t, json.Unmarshal(env.Data, &role))

	var perm models.Permission
	require.NoError(t, db.First(&perm, "resource = ? AND action = ?", "tickets", "read").Error)

	rec := doJSON(t, r, http.MethodPost, "/api/roles/"+role.ID+"/bindings", map[string]any{
		"permission_id": perm.ID,
		"scope":         []int{1, 2},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}
