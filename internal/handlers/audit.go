package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/errors"
	"github.com/relaydesk/accessd/pkg/response"
)

// AuditHandler exposes the tenant's audit trail.
type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func auditFiltersFromQuery(c *gin.Context) services.AuditFilters {
	var filters services.AuditFilters
	filters.TenantID = c.GetString(middleware.CtxTenantIDKey)
	filters.UserID = c.Query("user_id")
	filters.Action = c.Query("action")
	filters.Result = c.Query("result")
	filters.Resource = c.Query("resource")

	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filters.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			filters.Until = &t
		}
	}
	return filters
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: per,
		Filters:  auditFiltersFromQuery(c),
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/audit/export
func (h *AuditHandler) Export(c *gin.Context) {
	logs, err := h.svc.Export(requestContext(c), auditFiltersFromQuery(c))
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, logs)
}
