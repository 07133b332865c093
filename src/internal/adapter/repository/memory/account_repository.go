package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/google/uuid"
)

type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.accountsByNumber[account.AccountNumber]; taken {
		return domain.Account{}, fmt.Errorf("%w: account number %s", domain.ErrDuplicate, account.AccountNumber)
	}
	if strings.TrimSpace(account.ID) == "" {
		account.ID = uuid.NewString()
	}
	if _, exists := r.store.accounts[account.ID]; exists {
		return domain.Account{}, fmt.Errorf("%w: account id %s", domain.ErrDuplicate, account.ID)
	}

	now := r.store.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.store.accounts[account.ID] = cloneAccount(account)
	r.store.accountsByNumber[account.AccountNumber] = account.ID
	return account, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *AccountRepository) GetByAccountNumber(_ context.Context, accountNumber string) (domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.accountsByNumber[accountNumber]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return cloneAccount(r.store.accounts[id]), nil
}

func (r *AccountRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]domain.Account, 0)
	for _, account := range r.store.accounts {
		if account.OwnerID == ownerID {
			accounts = append(accounts, cloneAccount(account))
		}
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountNumber < accounts[j].AccountNumber
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}
