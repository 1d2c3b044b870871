package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/relaydesk/accessd/internal/authz"
	"github.com/relaydesk/accessd/pkg/errors"
	"github.com/relaydesk/accessd/pkg/logger"
	"github.com/relaydesk/accessd/pkg/response"
)

// ContextExtractor derives the attribute bag for a decision from the incoming
// request. Route handlers that guard queue- or record-scoped resources supply
// one; routes without scoped data use the zero context.
type ContextExtractor func(c *gin.Context) authz.RequestContext

// Authorize gates the route on a decision from the engine. The client only
// ever sees a generic 403; the precise denial reason is logged and audited
// server side so probing the API does not reveal how grants are shaped.
func Authorize(engine *authz.Engine, resource, action string, extractors ...ContextExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		tenantID := c.GetString(CtxTenantIDKey)
		if userID == "" || tenantID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		var rc authz.RequestContext
		for _, extract := range extractors {
			rc = extract(c)
		}

		decision, err := engine.Authorize(c.Request.Context(), authz.Request{
			UserID:   userID,
			TenantID: tenantID,
			Resource: resource,
			Action:   action,
			Context:  rc,
		})
		if err != nil {
			logger.WithTenant("enforcement", tenantID).Error("authorization check failed",
				zap.String("user_id", userID),
				zap.String("resource", resource),
				zap.String("action", action),
				zap.Error(err),
			)
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		if !decision.Allowed {
			logger.WithTenant("enforcement", tenantID).Info("request denied",
				zap.String("user_id", userID),
				zap.String("resource", resource),
				zap.String("action", action),
				zap.String("reason", string(decision.Reason)),
			)
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
