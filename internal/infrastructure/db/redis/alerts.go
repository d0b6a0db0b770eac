package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// AlertMarker remembers which subsidy thresholds already fired, backed by
// Redis. Keys have no TTL: an alert fires once for the lifetime of a pool.
// Key format: alert:<pool_id>:<level>
type AlertMarker struct {
	client *redis.Client
}

// NewAlertMarker creates an AlertMarker wrapping the given Redis client.
func NewAlertMarker(client *redis.Client) *AlertMarker {
	return &AlertMarker{client: client}
}

// AlreadyRaised reports whether the alert for this pool and level fired before.
func (m *AlertMarker) AlreadyRaised(ctx context.Context, poolID string, level domain.ThresholdLevel) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(poolID, level)).Result()
	if err != nil {
		return false, fmt.Errorf("alert marker check: %w", err)
	}
	return n > 0, nil
}

// MarkRaised records that the alert fired.
func (m *AlertMarker) MarkRaised(ctx context.Context, poolID string, level domain.ThresholdLevel) error {
	return m.client.Set(ctx, m.key(poolID, level), "1", 0).Err()
}

func (m *AlertMarker) key(poolID string, level domain.ThresholdLevel) string {
	return fmt.Sprintf("alert:%s:%s", poolID, level)
}
