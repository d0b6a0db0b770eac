package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email, role, institutionID string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}
