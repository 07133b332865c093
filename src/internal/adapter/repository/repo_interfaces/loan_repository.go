package repo_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type LoanRepository interface {
	Create(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	GetByID(ctx context.Context, id string) (domain.Loan, error)
	// Update fails with domain.ErrStaleLoan when the stored version is not expectedVersion.
	Update(ctx context.Context, loan domain.Loan, expectedVersion int64) (domain.Loan, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Loan, error)
}
