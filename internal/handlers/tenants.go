package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/errors"
	"github.com/relaydesk/accessd/pkg/response"
)

// TenantHandler provisions tenants. These endpoints are for platform
// operators; they require a root token rather than a tenant-level grant.
type TenantHandler struct {
	svc *services.TenantService
}

func NewTenantHandler(svc *services.TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// RequireRoot rejects callers whose token is not marked as a platform operator.
func RequireRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(middleware.CtxIsRootKey) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

type createTenantRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// POST /api/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req createTenantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tenant, err := h.svc.Create(requestContext(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, tenant)
}

// GET /api/tenants
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tenants)
}

// GET /api/tenants/:id
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tenant)
}

// PATCH /api/tenants/:id/active
func (h *TenantHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tenant, err := h.svc.SetActive(requestContext(c), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tenant)
}
