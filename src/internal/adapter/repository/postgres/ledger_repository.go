package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/logger"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) PostTransaction(ctx context.Context, account domain.Account, expectedVersion int64, txn domain.Transaction) (posted domain.Account, created domain.Transaction, err error) {
	logger.Info("ledger repository post transaction", logger.Fields{
		"accountId":       account.ID,
		"type":            txn.Type,
		"amount":          txn.Amount,
		"referenceNumber": txn.ReferenceNumber,
		"expectedVersion": expectedVersion,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("ledger repository begin tx failed", err, nil)
		return domain.Account{}, domain.Transaction{}, fmt.Errorf("begin posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updateAccountQuery = `
UPDATE accounts
SET balance = $2::numeric,
    last_transaction_date = $3,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1
  AND version = $4
RETURNING ` + accountColumns

	posted, err = scanAccount(tx.QueryRowContext(
		ctx,
		updateAccountQuery,
		account.ID,
		account.Balance,
		timeArg(account.LastTransactionDate),
		expectedVersion,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = r.missingOrStale(ctx, tx, account.ID)
			return domain.Account{}, domain.Transaction{}, err
		}
		if isMalformedID(err) {
			err = domain.ErrNotFound
			return domain.Account{}, domain.Transaction{}, err
		}
		logger.Error("ledger repository update balance failed", err, logger.Fields{"accountId": account.ID})
		return domain.Account{}, domain.Transaction{}, fmt.Errorf("update account balance: %w", err)
	}

	const insertTransactionQuery = `
INSERT INTO transactions (
	account_id,
	amount,
	type,
	category,
	description,
	location,
	reference_number,
	status,
	balance_after,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::timestamptz, NOW()))
RETURNING id, created_at`

	var createdAt any
	if !txn.CreatedAt.IsZero() {
		createdAt = txn.CreatedAt.UTC()
	}

	if err = tx.QueryRowContext(
		ctx,
		insertTransactionQuery,
		posted.ID,
		txn.Amount,
		txn.Type,
		txn.Category,
		txn.Description,
		txn.Location,
		txn.ReferenceNumber,
		txn.Status,
		txn.BalanceAfter,
		createdAt,
	).Scan(&txn.ID, &txn.CreatedAt); err != nil {
		if isUniqueViolation(err, referenceConstraint) {
			logger.Warn("ledger repository reference collision", logger.Fields{"referenceNumber": txn.ReferenceNumber})
			err = domain.ErrReferenceCollision
			return domain.Account{}, domain.Transaction{}, err
		}
		logger.Error("ledger repository insert transaction failed", err, logger.Fields{"accountId": account.ID})
		return domain.Account{}, domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger repository commit tx failed", err, nil)
		return domain.Account{}, domain.Transaction{}, fmt.Errorf("commit posting transaction: %w", err)
	}

	txn.AccountID = posted.ID
	txn.AccountNumber = posted.AccountNumber
	txn.CreatedAt = txn.CreatedAt.UTC()

	logger.Info("ledger repository post transaction success", logger.Fields{
		"accountId":       posted.ID,
		"transactionId":   txn.ID,
		"referenceNumber": txn.ReferenceNumber,
		"version":         posted.Version,
	})
	return posted, txn, nil
}

func (r *LedgerRepository) missingOrStale(ctx context.Context, tx *sql.Tx, accountID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return fmt.Errorf("check account existence: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrStaleAccount
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	const query = `
SELECT t.id, t.account_id, a.account_number, t.amount, t.type, t.category, t.description, t.location,
       t.reference_number, t.status, t.balance_after, t.created_at
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE t.account_id = $1
ORDER BY t.created_at DESC, t.reference_number DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		if isMalformedID(err) {
			return []domain.Transaction{}, nil
		}
		logger.Error("ledger repository list failed", err, logger.Fields{"accountId": accountID})
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.AccountNumber,
			&txn.Amount,
			&txn.Type,
			&txn.Category,
			&txn.Description,
			&txn.Location,
			&txn.ReferenceNumber,
			&txn.Status,
			&txn.BalanceAfter,
			&txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txn.CreatedAt = txn.CreatedAt.UTC()
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}
