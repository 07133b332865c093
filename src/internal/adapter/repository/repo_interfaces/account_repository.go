package repo_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
}
