package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/lock"
	"github.com/api-sage/securebank-core/src/internal/models"
	"github.com/api-sage/securebank-core/src/internal/reference"
	"github.com/api-sage/securebank-core/src/internal/usecase/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLedgerServiceDeposit(t *testing.T) {
	h := newHarness(t)
	svc := h.ledgerService(nil, 0)
	account := h.account(t, "1000000001", "100.00", true)

	txn, err := svc.ApplyTransaction(context.Background(), models.ApplyTransactionRequest{
		AccountID:   account.ID,
		Type:        domain.TransactionTypeDeposit,
		Amount:      dec("50.25"),
		Description: " salary ",
		Category:    domain.TransactionCategoryIncome,
	})
	require.NoError(t, err)

	assert.True(t, reference.Valid(txn.ReferenceNumber))
	assert.Equal(t, "TXN-00000001", txn.ReferenceNumber)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "150.25", txn.BalanceAfter.StringFixed(2))
	assert.Equal(t, "salary", txn.Description)
	assert.Equal(t, account.AccountNumber, txn.AccountNumber)
	assert.Equal(t, fixedNow, txn.CreatedAt)

	stored, err := svc.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.25", stored.Balance.StringFixed(2))
	require.NotNil(t, stored.LastTransactionDate)
	assert.Equal(t, fixedNow, *stored.LastTransactionDate)
}

func TestLedgerServiceWithdrawalAndTransferDebit(t *testing.T) {
	h := newHarness(t)
	svc := h.ledgerService(nil, 0)
	account := h.account(t, "1000000001", "100.00", true)
	ctx := context.Background()

	_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: dec("30")})
	require.NoError(t, err)

	txn, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeTransfer, Amount: dec("70.00")})
	require.NoError(t, err)
	assert.True(t, txn.BalanceAfter.IsZero())

	stored, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
}

func TestLedgerServiceRejectionsLeaveAccountUntouched(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		req    func(accountID string) models.ApplyTransactionRequest
		want   error
	}{
		{
			name:   "insufficient funds",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeWithdrawal, Amount: dec("100.01")}
			},
			want: domain.ErrInsufficientFunds,
		},
		{
			name:   "transfer over balance",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeTransfer, Amount: dec("1000")}
			},
			want: domain.ErrInsufficientFunds,
		},
		{
			name:   "zero amount",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeDeposit, Amount: dec("0")}
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name:   "negative amount",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeDeposit, Amount: dec("-5")}
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name:   "sub cent amount",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeDeposit, Amount: dec("0.001")}
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name:   "unknown type",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: "REVERSAL", Amount: dec("1")}
			},
			want: domain.ErrInvalidTransactionType,
		},
		{
			name:   "unknown category",
			active: true,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeDeposit, Amount: dec("1"), Category: "LOTTERY"}
			},
			want: domain.ErrInvalidCategory,
		},
		{
			name:   "inactive account",
			active: false,
			req: func(id string) models.ApplyTransactionRequest {
				return models.ApplyTransactionRequest{AccountID: id, Type: domain.TransactionTypeDeposit, Amount: dec("1")}
			},
			want: domain.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			svc := h.ledgerService(nil, 0)
			account := h.account(t, "1000000001", "100.00", tt.active)
			ctx := context.Background()

			_, err := svc.ApplyTransaction(ctx, tt.req(account.ID))
			assert.ErrorIs(t, err, tt.want)

			stored, err := h.accounts.GetByID(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "100.00", stored.Balance.StringFixed(2))
			assert.Nil(t, stored.LastTransactionDate)
			assert.Equal(t, account.Version, stored.Version)

			txns, err := h.ledger.ListByAccount(ctx, account.ID)
			require.NoError(t, err)
			assert.Empty(t, txns)
		})
	}
}

func TestLedgerServiceUnknownAccount(t *testing.T) {
	h := newHarness(t)
	svc := h.ledgerService(nil, 0)

	_, err := svc.ApplyTransaction(context.Background(), models.ApplyTransactionRequest{AccountID: "missing", Type: domain.TransactionTypeDeposit, Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ListTransactions(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgerServiceConcurrentFullBalanceWithdrawals(t *testing.T) {
	for run := 0; run < 20; run++ {
		h := newHarness(t)
		svc := h.ledgerService(reference.NewSeededRandom(uint64(run), 7), 0)
		account := h.account(t, "1000000001", "100.00", true)

		var successes, insufficient atomic.Int32
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := svc.ApplyTransaction(context.Background(), models.ApplyTransactionRequest{
					AccountID: account.ID,
					Type:      domain.TransactionTypeWithdrawal,
					Amount:    dec("100.00"),
				})
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, domain.ErrInsufficientFunds):
					insufficient.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), successes.Load())
		require.Equal(t, int32(1), insufficient.Load())

		stored, err := h.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.True(t, stored.Balance.IsZero())
	}
}

func TestLedgerServiceConcurrentPostingsConserveBalance(t *testing.T) {
	h := newHarness(t)
	svc := h.ledgerService(nil, 0)
	account := h.account(t, "1000000001", "10.00", true)
	other := h.account(t, "1000000002", "0.00", true)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: dec("1.10")})
			return err
		})
		g.Go(func() error {
			_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: other.ID, Type: domain.TransactionTypeDeposit, Amount: dec("0.01")})
			return err
		})
	}
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: dec("1.00")})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// 10.00 + 50*1.10 - 10*1.00
	stored, err := svc.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "55.00", stored.Balance.StringFixed(2))

	otherStored, err := svc.GetAccount(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.50", otherStored.Balance.StringFixed(2))

	txns, err := svc.ListTransactions(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 60)

	seen := make(map[string]struct{})
	for _, txn := range txns {
		_, dup := seen[txn.ReferenceNumber]
		assert.False(t, dup, "duplicate reference %s", txn.ReferenceNumber)
		seen[txn.ReferenceNumber] = struct{}{}
	}
}

func TestLedgerServiceRetriesReferenceCollision(t *testing.T) {
	h := newHarness(t)
	first := h.account(t, "1000000001", "0", true)
	second := h.account(t, "1000000002", "0", true)
	ctx := context.Background()

	seeded := h.ledgerService(reference.Func(func() string { return "TXN-00000042" }), 0)
	_, err := seeded.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: first.ID, Type: domain.TransactionTypeDeposit, Amount: dec("5")})
	require.NoError(t, err)

	draws := []string{"TXN-00000042", "TXN-00000042", "TXN-00000043"}
	var calls atomic.Int32
	svc := h.ledgerService(reference.Func(func() string {
		return draws[calls.Add(1)-1]
	}), 0)

	txn, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: second.ID, Type: domain.TransactionTypeDeposit, Amount: dec("7.5")})
	require.NoError(t, err)
	assert.Equal(t, "TXN-00000043", txn.ReferenceNumber)
	assert.Equal(t, int32(3), calls.Load())

	stored, err := h.accounts.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "7.50", stored.Balance.StringFixed(2))
}

func TestLedgerServiceReferenceExhausted(t *testing.T) {
	h := newHarness(t)
	first := h.account(t, "1000000001", "0", true)
	second := h.account(t, "1000000002", "20.00", true)
	ctx := context.Background()

	svc := h.ledgerService(reference.Func(func() string { return "TXN-00000001" }), 3)
	_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: first.ID, Type: domain.TransactionTypeDeposit, Amount: dec("1")})
	require.NoError(t, err)

	_, err = svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: second.ID, Type: domain.TransactionTypeWithdrawal, Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrReferenceExhausted)
	assert.NotErrorIs(t, err, domain.ErrReferenceCollision)

	stored, err := h.accounts.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", stored.Balance.StringFixed(2))
}

// staleLedger reports the first `stale` postings as stale, as if another
// writer had bumped the version in between.
type staleLedger struct {
	repo_interfaces.LedgerRepository
	stale atomic.Int32
}

func (l *staleLedger) PostTransaction(ctx context.Context, account domain.Account, expectedVersion int64, txn domain.Transaction) (domain.Account, domain.Transaction, error) {
	if l.stale.Add(-1) >= 0 {
		return domain.Account{}, domain.Transaction{}, domain.ErrStaleAccount
	}
	return l.LedgerRepository.PostTransaction(ctx, account, expectedVersion, txn)
}

func TestLedgerServiceRetriesStaleVersion(t *testing.T) {
	h := newHarness(t)
	account := h.account(t, "1000000001", "10.00", true)
	ctx := context.Background()

	ledger := &staleLedger{LedgerRepository: h.ledger}
	ledger.stale.Store(2)
	svc := services.NewLedgerService(h.accounts, ledger, lock.NewMemory(), reference.NewSequence(1), h.clock, nil, 5)

	txn, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: dec("4")})
	require.NoError(t, err)
	assert.Equal(t, "6.00", txn.BalanceAfter.StringFixed(2))

	ledger.stale.Store(5)
	_, err = svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrStaleAccount)
}

func TestLedgerServiceListTransactionsNewestFirst(t *testing.T) {
	h := newHarness(t)
	svc := h.ledgerService(nil, 0)
	account := h.account(t, "1000000001", "0", true)
	ctx := context.Background()

	for _, amount := range []string{"1", "2", "3"} {
		_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: dec(amount)})
		require.NoError(t, err)
	}

	txns, err := svc.ListTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "6.00", txns[0].BalanceAfter.StringFixed(2))
	assert.Equal(t, "1.00", txns[2].BalanceAfter.StringFixed(2))
}

func TestLedgerServiceHonoursCancelledContext(t *testing.T) {
	h := newHarness(t)
	locker := lock.NewMemory()
	svc := services.NewLedgerService(h.accounts, h.ledger, locker, nil, h.clock, nil, 0)
	account := h.account(t, "1000000001", "10.00", true)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), lock.AccountKey(account.ID), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ApplyTransaction(ctx, models.ApplyTransactionRequest{AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: dec("1")})
	assert.ErrorIs(t, err, context.Canceled)
}
