package memory

import (
	"context"
	"strings"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/google/uuid"
)

type LoanRepository struct {
	store *Store
}

func NewLoanRepository(store *Store) *LoanRepository {
	return &LoanRepository{store: store}
}

func (r *LoanRepository) Create(_ context.Context, loan domain.Loan) (domain.Loan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if strings.TrimSpace(loan.ID) == "" {
		loan.ID = uuid.NewString()
	}
	if _, exists := r.store.loans[loan.ID]; exists {
		return domain.Loan{}, domain.ErrDuplicate
	}

	now := r.store.now()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	r.store.loans[loan.ID] = cloneLoan(loan)
	r.store.loanOrder = append(r.store.loanOrder, loan.ID)
	return loan, nil
}

func (r *LoanRepository) GetByID(_ context.Context, id string) (domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	loan, ok := r.store.loans[id]
	if !ok {
		return domain.Loan{}, domain.ErrNotFound
	}
	return cloneLoan(loan), nil
}

func (r *LoanRepository) Update(_ context.Context, loan domain.Loan, expectedVersion int64) (domain.Loan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.loans[loan.ID]
	if !ok {
		return domain.Loan{}, domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.Loan{}, domain.ErrStaleLoan
	}

	// Only lifecycle fields move; the application figures are fixed at creation.
	stored.Status = loan.Status
	stored.RemainingPayments = loan.RemainingPayments
	stored.StartDate = copyTime(loan.StartDate)
	stored.NextPaymentDate = copyTime(loan.NextPaymentDate)
	stored.UpdatedAt = r.store.now()
	stored.Version = expectedVersion + 1

	r.store.loans[stored.ID] = stored
	return cloneLoan(stored), nil
}

// ListByOwner returns the owner's loans, newest first.
func (r *LoanRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	loans := make([]domain.Loan, 0)
	for i := len(r.store.loanOrder) - 1; i >= 0; i-- {
		loan := r.store.loans[r.store.loanOrder[i]]
		if loan.OwnerID == ownerID {
			loans = append(loans, cloneLoan(loan))
		}
	}
	return loans, nil
}
