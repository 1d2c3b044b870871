package authz

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Restriction narrows a binding's grant. Scope documents produce structural
// restrictions (queue membership, own-record-only); condition documents
// produce attribute predicates (time windows). All variants evaluate against
// the caller-supplied RequestContext.
type Restriction interface {
	Satisfied(rc RequestContext) bool
}

// QueueRestriction limits a grant to tickets in the listed queues.
type QueueRestriction struct {
	IDs []int64
}

func (r QueueRestriction) Satisfied(rc RequestContext) bool {
	if rc.QueueID == nil {
		return false
	}
	for _, id := range r.IDs {
		if id == *rc.QueueID {
			return true
		}
	}
	return false
}

// OwnRecordOnly limits a grant to records the acting user owns.
type OwnRecordOnly struct{}

func (OwnRecordOnly) Satisfied(rc RequestContext) bool {
	return rc.IsOwnRecord
}

// TimeWindow limits a grant to a daily clock window. Start and End use
// "15:04" notation; windows that cross midnight (start > end) are honoured.
type TimeWindow struct {
	Start string
	End   string
}

func (r TimeWindow) Satisfied(rc RequestContext) bool {
	at := rc.Timestamp
	if at.IsZero() {
		return false
	}

	start, err := parseClock(r.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(r.End)
	if err != nil {
		return false
	}

	minute := at.Hour()*60 + at.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// window wraps midnight
	return minute >= start || minute < end
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("authz: parse clock %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// neverSatisfied replaces restrictions whose payload could not be decoded.
// A binding carrying a malformed known key denies rather than grants.
type neverSatisfied struct{}

func (neverSatisfied) Satisfied(RequestContext) bool { return false }

type timeWindowDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DecodeRestrictions turns a persisted scope/conditions document into its
// restriction variants. Unknown keys are ignored so older engines keep
// working against newer documents; this mirrors the platform's historical
// permissive posture and is a deliberate policy choice. Ignored key names are
// returned so callers can log them.
func DecodeRestrictions(doc datatypes.JSON) ([]Restriction, []string, error) {
	if len(doc) == 0 || string(doc) == "null" {
		return nil, nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, nil, fmt.Errorf("authz: decode restriction document: %w", err)
	}

	var (
		restrictions []Restriction
		ignored      []string
	)

	for key, raw := range fields {
		switch key {
		case "queueIds":
			var ids []int64
			if err := json.Unmarshal(raw, &ids); err != nil {
				restrictions = append(restrictions, neverSatisfied{})
				continue
			}
			restrictions = append(restrictions, QueueRestriction{IDs: ids})
		case "onlyOwn":
			var flag bool
			if err := json.Unmarshal(raw, &flag); err != nil {
				restrictions = append(restrictions, neverSatisfied{})
				continue
			}
			if flag {
				restrictions = append(restrictions, OwnRecordOnly{})
			}
		case "timeWindow":
			var window timeWindowDoc
			if err := json.Unmarshal(raw, &window); err != nil {
				restrictions = append(restrictions, neverSatisfied{})
				continue
			}
			restrictions = append(restrictions, TimeWindow{Start: window.Start, End: window.End})
		default:
			ignored = append(ignored, key)
		}
	}

	return restrictions, ignored, nil
}
