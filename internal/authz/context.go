package authz

import "time"

// RequestContext is the attribute bag a caller supplies when asking for an
// authorization decision. It carries whatever the enforcement point knows
// about the request: which queue the target ticket sits in, whether the
// acting user owns the record, and the evaluation time for windowed grants.
type RequestContext struct {
	QueueID     *int64         `json:"queue_id,omitempty"`
	IsOwnRecord bool           `json:"is_own_record"`
	Timestamp   time.Time      `json:"timestamp,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// WithQueue returns a copy of the context carrying the supplied queue id.
func (rc RequestContext) WithQueue(id int64) RequestContext {
	rc.QueueID = &id
	return rc
}
