package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/response"
)

// RoleHandler exposes role management and binding endpoints. Roles are
// addressed inside the caller's tenant only; the tenant id always comes from
// the verified token, never from the request body.
type RoleHandler struct {
	roles    *services.RoleService
	bindings *services.BindingService
}

func NewRoleHandler(roles *services.RoleService, bindings *services.BindingService) *RoleHandler {
	return &RoleHandler{roles: roles, bindings: bindings}
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=512"`
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req createRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.roles.Create(requestContext(c), c.GetString(middleware.CtxTenantIDKey), services.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(requestContext(c), c.GetString(middleware.CtxTenantIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.roles.Get(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

type updateRoleRequest struct {
	Name        string  `json:"name" validate:"max=50"`
	Description *string `json:"description" validate:"omitempty,max=512"`
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var req updateRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.roles.Update(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), services.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.roles.Delete(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/roles/:id/bindings
func (h *RoleHandler) ListBindings(c *gin.Context) {
	bindings, err := h.bindings.ListForRole(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, bindings)
}

type grantRequest struct {
	PermissionID string          `json:"permission_id" validate:"required"`
	Scope        json.RawMessage `json:"scope"`
	Conditions   json.RawMessage `json:"conditions"`
}

// POST /api/roles/:id/bindings
func (h *RoleHandler) Grant(c *gin.Context) {
	var req grantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	binding, err := h.bindings.Grant(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), services.GrantInput{
		PermissionID: req.PermissionID,
		Scope:        req.Scope,
		Conditions:   req.Conditions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, binding)
}

// DELETE /api/roles/:id/bindings/:bindingId
func (h *RoleHandler) Revoke(c *gin.Context) {
	err := h.bindings.Revoke(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), c.Param("bindingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

type replaceBindingsRequest struct {
	Bindings []grantRequest `json:"bindings"`
}

// PUT /api/roles/:id/bindings
func (h *RoleHandler) ReplaceBindings(c *gin.Context) {
	var req replaceBindingsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	inputs := make([]services.GrantInput, 0, len(req.Bindings))
	for _, b := range req.Bindings {
		inputs = append(inputs, services.GrantInput{
			PermissionID: b.PermissionID,
			Scope:        b.Scope,
			Conditions:   b.Conditions,
		})
	}

	bindings, err := h.bindings.Replace(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, bindings)
}
