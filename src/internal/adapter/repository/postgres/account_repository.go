package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/logger"
)

const accountColumns = `id, owner_id, account_number, account_type, balance, interest_rate, purpose, active, last_transaction_date, version, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"ownerId":       account.OwnerID,
		"accountNumber": account.AccountNumber,
		"accountType":   account.AccountType,
	})

	const query = `
INSERT INTO accounts (
	id,
	owner_id,
	account_number,
	account_type,
	balance,
	interest_rate,
	purpose,
	active
) VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
RETURNING id, version, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.OwnerID,
		account.AccountNumber,
		account.AccountType,
		account.Balance,
		account.InterestRate,
		account.Purpose,
		account.Active,
	).Scan(&account.ID, &account.Version, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err, accountNumberConstraint) {
			return domain.Account{}, fmt.Errorf("%w: account number %s", domain.ErrDuplicate, account.AccountNumber)
		}
		logger.Error("account repository create failed", err, logger.Fields{
			"ownerId":       account.OwnerID,
			"accountNumber": account.AccountNumber,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId":     account.ID,
		"accountNumber": account.AccountNumber,
	})
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Account{}, domain.ErrNotFound
		}
		logger.Error("account repository get by id failed", err, logger.Fields{"accountId": id})
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("account repository record not found", logger.Fields{"accountNumber": accountNumber})
			return domain.Account{}, domain.ErrNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{"accountNumber": accountNumber})
		return domain.Account{}, fmt.Errorf("get account by account number: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, account_number`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		if isMalformedID(err) {
			return []domain.Account{}, nil
		}
		return nil, fmt.Errorf("list accounts by owner: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var lastTransaction sql.NullTime

	if err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Balance,
		&account.InterestRate,
		&account.Purpose,
		&account.Active,
		&lastTransaction,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}

	account.LastTransactionDate = nullTimePtr(lastTransaction)
	return account, nil
}
