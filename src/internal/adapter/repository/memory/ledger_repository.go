package memory

import (
	"context"
	"errors"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/google/uuid"
)

var errNegativeBalance = errors.New("account balance cannot be negative")

type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) PostTransaction(_ context.Context, account domain.Account, expectedVersion int64, txn domain.Transaction) (domain.Account, domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.accounts[account.ID]
	if !ok {
		return domain.Account{}, domain.Transaction{}, domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.Account{}, domain.Transaction{}, domain.ErrStaleAccount
	}
	if _, taken := r.store.references[txn.ReferenceNumber]; taken {
		return domain.Account{}, domain.Transaction{}, domain.ErrReferenceCollision
	}
	if account.Balance.IsNegative() {
		return domain.Account{}, domain.Transaction{}, errNegativeBalance
	}

	now := r.store.now()

	stored.Balance = account.Balance
	stored.LastTransactionDate = copyTime(account.LastTransactionDate)
	stored.UpdatedAt = now
	stored.Version = expectedVersion + 1

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.AccountID = stored.ID
	txn.AccountNumber = stored.AccountNumber
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}

	r.store.accounts[stored.ID] = stored
	r.store.transactions[stored.ID] = append(r.store.transactions[stored.ID], txn)
	r.store.references[txn.ReferenceNumber] = struct{}{}

	return cloneAccount(stored), txn, nil
}

// ListByAccount returns the account's transactions, newest first.
func (r *LedgerRepository) ListByAccount(_ context.Context, accountID string) ([]domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	posted := r.store.transactions[accountID]
	out := make([]domain.Transaction, 0, len(posted))
	for i := len(posted) - 1; i >= 0; i-- {
		out = append(out, posted[i])
	}
	return out, nil
}
