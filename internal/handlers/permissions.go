package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/response"
)

// PermissionHandler exposes the global permission catalog.
type PermissionHandler struct {
	svc *services.PermissionService
}

func NewPermissionHandler(svc *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{svc: svc}
}

// GET /api/permissions
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

type createPermissionRequest struct {
	Resource    string `json:"resource" validate:"required,max=128"`
	Action      string `json:"action" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var req createPermissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	perm, err := h.svc.Create(requestContext(c), services.CreatePermissionInput{
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

type updatePermissionRequest struct {
	Description string `json:"description" validate:"max=512"`
}

// PATCH /api/permissions/:id
func (h *PermissionHandler) Update(c *gin.Context) {
	var req updatePermissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	perm, err := h.svc.UpdateDescription(requestContext(c), c.Param("id"), req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
