package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaydesk/accessd/internal/authz"
	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/errors"
	"github.com/relaydesk/accessd/pkg/response"
)

// AuthorizeHandler answers decision queries for other platform services. The
// response says whether the request is allowed and nothing else; denial
// reasons stay in the server-side audit trail.
type AuthorizeHandler struct {
	engine *authz.Engine
	audit  *services.AuditService
}

func NewAuthorizeHandler(engine *authz.Engine, audit *services.AuditService) *AuthorizeHandler {
	return &AuthorizeHandler{engine: engine, audit: audit}
}

type authorizeRequest struct {
	Resource string `json:"resource" validate:"required,max=128"`
	Action   string `json:"action" validate:"required,max=128"`

	Context struct {
		QueueID     *int64     `json:"queue_id"`
		IsOwnRecord bool       `json:"is_own_record"`
		Timestamp   *time.Time `json:"timestamp"`
	} `json:"context"`
}

// POST /api/authorize
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	var req authorizeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	tenantID := c.GetString(middleware.CtxTenantIDKey)
	if userID == "" || tenantID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	rc := authz.RequestContext{
		QueueID:     req.Context.QueueID,
		IsOwnRecord: req.Context.IsOwnRecord,
	}
	if req.Context.Timestamp != nil {
		rc.Timestamp = *req.Context.Timestamp
	}

	decision, err := h.engine.Authorize(requestContext(c), authz.Request{
		UserID:   userID,
		TenantID: tenantID,
		Resource: req.Resource,
		Action:   req.Action,
		Context:  rc,
	})

	result := "denied"
	if decision.Allowed {
		result = "allowed"
	}
	if h.audit != nil {
		_ = h.audit.Log(requestContext(c), services.AuditEntry{
			UserID:    &userID,
			TenantID:  tenantID,
			Action:    "authz.decision",
			Resource:  req.Resource + ":" + req.Action,
			Result:    result,
			Reason:    string(decision.Reason),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}

	if err != nil {
		// fail closed without explaining why
		response.Success(c, http.StatusOK, gin.H{"allowed": false})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"allowed": decision.Allowed})
}
