package service_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/amortization"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/models"
)

type LoanService interface {
	Apply(ctx context.Context, req models.LoanApplicationRequest) (domain.Loan, error)
	Approve(ctx context.Context, loanID string) (domain.Loan, error)
	MakePayment(ctx context.Context, loanID string) (domain.Loan, error)
	GetLoan(ctx context.Context, loanID string) (domain.Loan, error)
	ListLoans(ctx context.Context, ownerID string) ([]domain.Loan, error)
	Schedule(ctx context.Context, loanID string) ([]amortization.Installment, error)
}
