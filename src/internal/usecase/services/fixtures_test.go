package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/memory"
	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/lock"
	"github.com/api-sage/securebank-core/src/internal/metrics"
	"github.com/api-sage/securebank-core/src/internal/reference"
	"github.com/api-sage/securebank-core/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)

type harness struct {
	store    *memory.Store
	accounts *memory.AccountRepository
	ledger   *memory.LedgerRepository
	loans    *memory.LoanRepository
	owners   *memory.OwnerDirectory
	clock    *clock.Manual
	metrics  *metrics.Collector
	owner    domain.Owner
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	h := &harness{
		store:    store,
		accounts: memory.NewAccountRepository(store),
		ledger:   memory.NewLedgerRepository(store),
		loans:    memory.NewLoanRepository(store),
		owners:   memory.NewOwnerDirectory(store),
		clock:    clock.NewManual(fixedNow),
		metrics:  metrics.NewCollector(),
	}

	owner, err := h.owners.Add(context.Background(), domain.Owner{Username: "ada", FullName: "Ada Obi", Active: true})
	require.NoError(t, err)
	h.owner = owner
	return h
}

func (h *harness) ledgerService(refs reference.Generator, maxAttempts int) *services.LedgerService {
	if refs == nil {
		refs = reference.NewSequence(1)
	}
	return services.NewLedgerService(h.accounts, h.ledger, lock.NewMemory(), refs, h.clock, h.metrics, maxAttempts)
}

func (h *harness) loanService() *services.LoanService {
	return services.NewLoanService(h.loans, h.owners, lock.NewMemory(), h.clock, h.metrics)
}

func (h *harness) account(t *testing.T, number string, balance string, active bool) domain.Account {
	t.Helper()

	account, err := h.accounts.Create(context.Background(), domain.Account{
		OwnerID:       h.owner.ID,
		AccountNumber: number,
		AccountType:   domain.AccountTypeSavings,
		Balance:       decimal.RequireFromString(balance),
		InterestRate:  decimal.RequireFromString("2.5"),
		Active:        active,
	})
	require.NoError(t, err)
	return account
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
