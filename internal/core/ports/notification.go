package ports

import (
	"context"
	"time"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// ThresholdAlert is raised when a subsidy pool crosses a depletion threshold.
type ThresholdAlert struct {
	PoolID          string                `json:"pool_id"`
	InstitutionID   string                `json:"institution_id"`
	Level           domain.ThresholdLevel `json:"level"`
	UsedAmount      int64                 `json:"used_amount"`
	AllocatedAmount int64                 `json:"allocated_amount"`
	RaisedAt        time.Time             `json:"raised_at"`
}

// NotificationSink is the external alert collaborator. Delivery is
// best-effort: a failure is logged and never rolls back the consumption
// that triggered it.
type NotificationSink interface {
	Notify(ctx context.Context, alert ThresholdAlert) error
}

// AlertMarker remembers which pool thresholds have already fired so an alert
// is raised once per threshold per pool, even if usage dips back below after
// a reversal and crosses again.
type AlertMarker interface {
	AlreadyRaised(ctx context.Context, poolID string, level domain.ThresholdLevel) (bool, error)
	MarkRaised(ctx context.Context, poolID string, level domain.ThresholdLevel) error
}
