package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/lock"
	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/api-sage/securebank-core/src/internal/metrics"
	"github.com/api-sage/securebank-core/src/internal/models"
	"github.com/api-sage/securebank-core/src/internal/reference"
)

const DefaultMaxAttempts = 5

// Errors the caller caused; metrics count them as rejections, not failures.
var ledgerRejections = []error{
	domain.ErrInvalidAmount,
	domain.ErrInvalidTransactionType,
	domain.ErrInvalidCategory,
	domain.ErrInsufficientFunds,
	domain.ErrNotFound,
	domain.ErrAccountInactive,
}

type LedgerService struct {
	accountRepo repo_interfaces.AccountRepository
	ledgerRepo  repo_interfaces.LedgerRepository
	locker      lock.Locker
	references  reference.Generator
	clock       clock.Clock
	metrics     *metrics.Collector
	maxAttempts int
}

func NewLedgerService(
	accountRepo repo_interfaces.AccountRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
	locker lock.Locker,
	references reference.Generator,
	clk clock.Clock,
	collector *metrics.Collector,
	maxAttempts int,
) *LedgerService {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if clk == nil {
		clk = clock.System()
	}
	if references == nil {
		references = reference.NewRandom()
	}

	return &LedgerService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		locker:      locker,
		references:  references,
		clock:       clk,
		metrics:     collector,
		maxAttempts: maxAttempts,
	}
}

// ApplyTransaction posts req against its account. The balance change and the
// transaction record are stored together or not at all; a rejected request
// leaves the account untouched.
func (s *LedgerService) ApplyTransaction(ctx context.Context, req models.ApplyTransactionRequest) (txn domain.Transaction, err error) {
	started := time.Now()
	defer func() {
		s.metrics.RecordTransaction(string(req.Type), metrics.Outcome(err, ledgerRejections...), req.Amount, time.Since(started))
	}()

	logger.Info("ledger service apply transaction request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service apply transaction validation failed", err, nil)
		return domain.Transaction{}, err
	}

	accountID := strings.TrimSpace(req.AccountID)
	err = s.locker.WithLock(ctx, lock.AccountKey(accountID), func(ctx context.Context) error {
		posted, postErr := s.post(ctx, accountID, req)
		if postErr != nil {
			return postErr
		}
		txn = posted
		return nil
	})
	if err != nil {
		logger.Error("ledger service apply transaction failed", err, logger.Fields{
			"accountId": accountID,
			"type":      req.Type,
		})
		return domain.Transaction{}, err
	}

	logger.Info("ledger service apply transaction success", logger.Fields{
		"accountId":       txn.AccountID,
		"transactionId":   txn.ID,
		"referenceNumber": txn.ReferenceNumber,
		"balanceAfter":    txn.BalanceAfter.StringFixed(2),
	})
	return txn, nil
}

func (s *LedgerService) post(ctx context.Context, accountID string, req models.ApplyTransactionRequest) (domain.Transaction, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		account, err := s.accountRepo.GetByID(ctx, accountID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if !account.Active {
			return domain.Transaction{}, domain.ErrAccountInactive
		}

		balance, err := req.Type.Apply(account.Balance, req.Amount)
		if err != nil {
			return domain.Transaction{}, err
		}

		now := s.clock.Now()
		expectedVersion := account.Version
		account.Balance = balance
		account.LastTransactionDate = &now

		_, created, err := s.ledgerRepo.PostTransaction(ctx, account, expectedVersion, domain.Transaction{
			AccountID:       account.ID,
			AccountNumber:   account.AccountNumber,
			Amount:          req.Amount,
			Type:            req.Type,
			Category:        req.Category,
			Description:     strings.TrimSpace(req.Description),
			Location:        strings.TrimSpace(req.Location),
			ReferenceNumber: s.references.Next(),
			Status:          domain.TransactionStatusCompleted,
			BalanceAfter:    balance,
			CreatedAt:       now,
		})
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, domain.ErrReferenceCollision):
			s.metrics.RecordReferenceRetry()
			logger.Warn("ledger service reference collision", logger.Fields{"accountId": accountID, "attempt": attempt})
		case errors.Is(err, domain.ErrStaleAccount):
			logger.Warn("ledger service stale account", logger.Fields{"accountId": accountID, "attempt": attempt})
		default:
			return domain.Transaction{}, err
		}
		lastErr = err
	}

	if errors.Is(lastErr, domain.ErrReferenceCollision) {
		return domain.Transaction{}, fmt.Errorf("%w after %d attempts", domain.ErrReferenceExhausted, s.maxAttempts)
	}
	return domain.Transaction{}, fmt.Errorf("post transaction after %d attempts: %w", s.maxAttempts, lastErr)
}

// ListTransactions returns the account's transactions, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	accountID = strings.TrimSpace(accountID)
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	txns, err := s.ledgerRepo.ListByAccount(ctx, accountID)
	if err != nil {
		logger.Error("ledger service list transactions failed", err, logger.Fields{"accountId": accountID})
		return nil, err
	}
	return txns, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	return s.accountRepo.GetByID(ctx, strings.TrimSpace(accountID))
}
