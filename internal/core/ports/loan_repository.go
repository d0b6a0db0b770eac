package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// LoanRepository defines persistence operations for loan requests.
// Update is compare-and-swap on l.Version (the pre-update value) and
// returns domain.ErrConcurrentModification when the document moved.
type LoanRepository interface {
	Create(ctx context.Context, l *domain.LoanRequest) error
	FindByID(ctx context.Context, id string) (*domain.LoanRequest, error)
	Update(ctx context.Context, l *domain.LoanRequest) error
}
