package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/accessd/internal/cache"
	"github.com/relaydesk/accessd/pkg/logger"
	"github.com/relaydesk/accessd/pkg/metrics"
)

const (
	// epochTTL bounds how long a tenant epoch key may outlive its last write.
	// Snapshot TTLs are clamped below it so a lost epoch can never resurrect
	// stale grants.
	epochTTL           = 24 * time.Hour
	defaultSnapshotTTL = 30 * time.Second
)

// CachedLoader wraps a Loader with a tenant-epoch snapshot cache. Any write
// through the stores must call InvalidateTenant synchronously; a stale cached
// snapshot is a security defect, not a performance bug. Invalidation rotates
// the tenant's epoch so every cached snapshot under the old epoch becomes
// unreachable at once.
type CachedLoader struct {
	inner Loader
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedLoader builds a caching Loader. TTL values above the epoch bound
// are clamped.
func NewCachedLoader(inner Loader, store cache.Store, ttl time.Duration) (*CachedLoader, error) {
	if inner == nil {
		return nil, errors.New("authz cache: inner loader is required")
	}
	if store == nil {
		return nil, errors.New("authz cache: store is required")
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if ttl > epochTTL {
		ttl = epochTTL
	}
	return &CachedLoader{
		inner: inner,
		store: store,
		ttl:   ttl,
		log:   logger.WithModule("authz.cache"),
	}, nil
}

// LoadSnapshot serves from cache when possible and falls through to the
// inner loader otherwise. Cache failures degrade to direct loads; they never
// fail a decision on their own.
func (l *CachedLoader) LoadSnapshot(ctx context.Context, userID, tenantID string) (*Snapshot, error) {
	epoch, err := l.currentEpoch(ctx, tenantID)
	if err != nil {
		l.log.Warn("epoch lookup failed; bypassing cache", zap.Error(err))
		return l.inner.LoadSnapshot(ctx, userID, tenantID)
	}

	key := snapshotKey(tenantID, epoch, userID)
	if data, ok, getErr := l.store.Get(ctx, key); getErr == nil && ok {
		var snap Snapshot
		if unmarshalErr := json.Unmarshal(data, &snap); unmarshalErr == nil {
			metrics.SnapshotCache.WithLabelValues("hit").Inc()
			return &snap, nil
		}
		_ = l.store.Delete(ctx, key)
	}

	metrics.SnapshotCache.WithLabelValues("miss").Inc()

	snap, err := l.inner.LoadSnapshot(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(snap); marshalErr == nil {
		if setErr := l.store.Set(ctx, key, encoded, l.ttl); setErr != nil {
			l.log.Warn("snapshot cache write failed", zap.Error(setErr))
		}
	}

	return snap, nil
}

// InvalidateTenant rotates the tenant's cache epoch. Every store write path
// calls this before returning success to the caller.
func (l *CachedLoader) InvalidateTenant(ctx context.Context, tenantID string) error {
	return l.store.Set(ctx, epochKey(tenantID), []byte(uuid.NewString()), epochTTL)
}

func (l *CachedLoader) currentEpoch(ctx context.Context, tenantID string) (string, error) {
	data, ok, err := l.store.Get(ctx, epochKey(tenantID))
	if err != nil {
		return "", err
	}
	if ok && len(data) > 0 {
		return string(data), nil
	}

	epoch := uuid.NewString()
	if err := l.store.Set(ctx, epochKey(tenantID), []byte(epoch), epochTTL); err != nil {
		return "", err
	}
	return epoch, nil
}

func epochKey(tenantID string) string {
	return "authz:epoch:" + tenantID
}

func snapshotKey(tenantID, epoch, userID string) string {
	return "authz:snap:" + tenantID + ":" + epoch + ":" + userID
}
