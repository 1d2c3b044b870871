package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/accessd/pkg/logger"
	"github.com/relaydesk/accessd/pkg/metrics"
)

// Request carries the inputs of one authorization evaluation.
type Request struct {
	UserID   string
	TenantID string
	Resource string
	Action   string
	Context  RequestContext
}

// Engine computes allow/deny decisions. It is a pure function of the loaded
// snapshot and the request context: no hidden state, no background refresh.
// Grants union across roles; any satisfied binding authorizes. Infrastructure
// failures during loading deny (fail-closed) and surface the error to the
// caller for logging.
type Engine struct {
	loader Loader
	log    *zap.Logger
	now    func() time.Time
}

// Option customises the Engine.
type Option func(*Engine)

// WithClock overrides the time source used when a request omits a timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs a decision engine over the supplied snapshot loader.
func NewEngine(loader Loader, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, errors.New("authz engine: loader is required")
	}
	engine := &Engine{
		loader: loader,
		log:    logger.WithModule("authz"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Authorize evaluates one request. Deny is a normal return value; the error
// is non-nil only for malformed requests or infrastructure failures, and in
// both cases the decision is a deny.
func (e *Engine) Authorize(ctx context.Context, req Request) (Decision, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.Resource = strings.TrimSpace(req.Resource)
	req.Action = strings.TrimSpace(req.Action)

	if req.UserID == "" || req.TenantID == "" || req.Resource == "" || req.Action == "" {
		return Decision{Reason: ReasonInternalError},
			errors.New("authz engine: user, tenant, resource, and action are required")
	}

	if req.Context.Timestamp.IsZero() {
		req.Context.Timestamp = e.now()
	}

	snap, err := e.loader.LoadSnapshot(ctx, req.UserID, req.TenantID)
	if err != nil {
		// fail closed: data unavailable means no access
		metrics.AuthzDecisions.WithLabelValues(req.Resource, req.Action, "error").Inc()
		e.log.Error("snapshot load failed; denying",
			zap.String("tenant_id", req.TenantID),
			zap.String("user_id", req.UserID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return Decision{Reason: ReasonInternalError}, err
	}

	decision := e.evaluate(snap, req)

	result := "deny"
	if decision.Allowed {
		result = "allow"
	}
	metrics.AuthzDecisions.WithLabelValues(req.Resource, req.Action, result).Inc()

	if decision.Allowed {
		e.log.Debug("authorization granted",
			zap.String("tenant_id", req.TenantID),
			zap.String("user_id", req.UserID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.String("reason", string(decision.Reason)),
			zap.String("binding_id", decision.BindingID),
		)
	} else {
		// the reason subcode stays server-side; clients only see a generic 403
		e.log.Info("authorization denied",
			zap.String("tenant_id", req.TenantID),
			zap.String("user_id", req.UserID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.String("reason", string(decision.Reason)),
		)
	}

	return decision, nil
}

// evaluate is the pure decision kernel over an already-loaded snapshot.
func (e *Engine) evaluate(snap *Snapshot, req Request) Decision {
	if snap.UserFound && snap.IsRoot {
		return Decision{Allowed: true, Reason: ReasonRootBypass}
	}

	if len(snap.Roles) == 0 {
		return Decision{Reason: ReasonNoRolesAssigned}
	}

	matched := false
	for _, binding := range snap.Bindings {
		if binding.Resource != req.Resource || binding.Action != req.Action {
			continue
		}
		matched = true

		if e.bindingSatisfied(binding, req.Context) {
			return Decision{
				Allowed:   true,
				Reason:    ReasonGranted,
				RoleID:    binding.RoleID,
				BindingID: binding.ID,
			}
		}
	}

	if !matched {
		return Decision{Reason: ReasonNoMatchingPermission}
	}
	return Decision{Reason: ReasonDeniedByScope}
}

func (e *Engine) bindingSatisfied(binding BindingGrant, rc RequestContext) bool {
	for _, doc := range []struct {
		name string
		raw  []byte
	}{
		{"scope", binding.Scope},
		{"conditions", binding.Conditions},
	} {
		restrictions, ignored, err := DecodeRestrictions(doc.raw)
		if err != nil {
			// malformed document: the binding grants nothing
			e.log.Warn("undecodable restriction document",
				zap.String("binding_id", binding.ID),
				zap.String("document", doc.name),
				zap.Error(err),
			)
			return false
		}
		for _, key := range ignored {
			e.log.Debug("ignoring unknown restriction key",
				zap.String("binding_id", binding.ID),
				zap.String("document", doc.name),
				zap.String("key", key),
			)
		}
		for _, restriction := range restrictions {
			if !restriction.Satisfied(rc) {
				return false
			}
		}
	}
	return true
}
