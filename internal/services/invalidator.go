package services

import "context"

// SnapshotInvalidator drops cached decision snapshots for a tenant. Every
// write that can change an authorization outcome must call it before the
// write is reported as successful; a stale snapshot is a live grant the
// administrator believes revoked.
type SnapshotInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// invalidateTenant tolerates a nil invalidator so services can run without a
// snapshot cache (direct loads are always fresh).
func invalidateTenant(inv SnapshotInvalidator, ctx context.Context, tenantID string) error {
	if inv == nil {
		return nil
	}
	return inv.InvalidateTenant(ctx, tenantID)
}
