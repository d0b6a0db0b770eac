package ports

import (
	"context"
	"time"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// SubsidyPoolRepository defines persistence operations for subsidy pools.
// UpdateUsage is compare-and-swap on the version token and returns
// domain.ErrConcurrentModification when a concurrent writer won.
type SubsidyPoolRepository interface {
	Create(ctx context.Context, p *domain.SubsidyPool) error
	FindByID(ctx context.Context, id string) (*domain.SubsidyPool, error)
	UpdateUsage(ctx context.Context, id string, version int64, usedAmount int64, status domain.PoolStatus, now time.Time) error
}
