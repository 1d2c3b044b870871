package authz

import "fmt"

// Reason is the subcode attached to every decision. Deny reasons are kept
// server-side for audit trails; clients only ever see a generic forbidden.
type Reason string

const (
	ReasonGranted              Reason = "granted"
	ReasonRootBypass           Reason = "root_bypass"
	ReasonNoRolesAssigned      Reason = "no_roles_assigned"
	ReasonNoMatchingPermission Reason = "no_matching_permission"
	ReasonDeniedByScope        Reason = "denied_by_scope"
	ReasonInternalError        Reason = "internal_error"
)

// Decision is the outcome of one authorization evaluation. Deny is a normal
// return value, not an error; only infrastructure failures surface as errors
// alongside a deny decision.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`

	// RoleID and BindingID identify the grant that satisfied the request,
	// populated only on allow.
	RoleID    string `json:"role_id,omitempty"`
	BindingID string `json:"binding_id,omitempty"`
}

// AuthorizationError is raised by enforcement points when a deny must stop
// the protected operation. It keeps the reason available to server-side logs
// while the HTTP layer maps it to a generic 403.
type AuthorizationError struct {
	Reason   Reason
	Resource string
	Action   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization denied for %s:%s (%s)", e.Resource, e.Action, e.Reason)
}

// Err converts a deny decision into an AuthorizationError; it returns nil for
// allow decisions so callers can use it inline.
func (d Decision) Err(resource, action string) *AuthorizationError {
	if d.Allowed {
		return nil
	}
	return &AuthorizationError{Reason: d.Reason, Resource: resource, Action: action}
}
