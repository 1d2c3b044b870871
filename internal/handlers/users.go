package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/response"
)

// UserHandler exposes user management and role assignment endpoints.
type UserHandler struct {
	users       *services.UserService
	assignments *services.AssignmentService
}

func NewUserHandler(users *services.UserService, assignments *services.AssignmentService) *UserHandler {
	return &UserHandler{users: users, assignments: assignments}
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,max=128"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"max=256"`
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), c.GetString(middleware.CtxTenantIDKey), services.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(requestContext(c), c.GetString(middleware.CtxTenantIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PATCH /api/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetActive(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// GET /api/users/:id/roles
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.assignments.ListRolesForUser(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

type assignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

// POST /api/users/:id/roles
func (h *UserHandler) AssignRole(c *gin.Context) {
	var req assignRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	assignment, err := h.assignments.Assign(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), req.RoleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, assignment)
}

// DELETE /api/users/:id/roles/:roleId
func (h *UserHandler) UnassignRole(c *gin.Context) {
	err := h.assignments.Unassign(requestContext(c), c.GetString(middleware.CtxTenantIDKey), c.Param("id"), c.Param("roleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unassigned": true})
}
