package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// AuditRepository is the shared append-only audit sink. Record must be
// called with the same transaction context as the mutation it documents.
// Query returns entries ordered by occurred_at ascending.
type AuditRepository interface {
	Record(ctx context.Context, e *domain.AuditLogEntry) error
	Query(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.AuditLogEntry, error)
}
