package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/logger"
)

const loanColumns = `id, owner_id, amount, term_months, monthly_income, interest_rate, monthly_payment, total_interest,
remaining_payments, status, purpose, employment_status, collateral, start_date, next_payment_date, version, created_at, updated_at`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	logger.Info("loan repository create", logger.Fields{
		"ownerId":    loan.OwnerID,
		"amount":     loan.Amount,
		"termMonths": loan.TermMonths,
	})

	query := `
INSERT INTO loans (
	owner_id,
	amount,
	term_months,
	monthly_income,
	interest_rate,
	monthly_payment,
	total_interest,
	remaining_payments,
	status,
	purpose,
	employment_status,
	collateral,
	start_date,
	next_payment_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + loanColumns

	created, err := scanLoan(r.db.QueryRowContext(
		ctx,
		query,
		loan.OwnerID,
		loan.Amount,
		loan.TermMonths,
		loan.MonthlyIncome,
		loan.InterestRate,
		loan.MonthlyPayment,
		loan.TotalInterest,
		loan.RemainingPayments,
		loan.Status,
		loan.Purpose,
		loan.EmploymentStatus,
		loan.Collateral,
		timeArg(loan.StartDate),
		timeArg(loan.NextPaymentDate),
	))
	if err != nil {
		logger.Error("loan repository create failed", err, logger.Fields{"ownerId": loan.OwnerID})
		return domain.Loan{}, fmt.Errorf("create loan: %w", err)
	}

	logger.Info("loan repository create success", logger.Fields{"loanId": created.ID})
	return created, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	loan, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Loan{}, domain.ErrNotFound
		}
		logger.Error("loan repository get failed", err, logger.Fields{"loanId": id})
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) Update(ctx context.Context, loan domain.Loan, expectedVersion int64) (domain.Loan, error) {
	logger.Info("loan repository update", logger.Fields{
		"loanId":            loan.ID,
		"status":            loan.Status,
		"remainingPayments": loan.RemainingPayments,
		"expectedVersion":   expectedVersion,
	})

	query := `
UPDATE loans
SET status = $2,
    remaining_payments = $3,
    start_date = $4,
    next_payment_date = $5,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1
  AND version = $6
RETURNING ` + loanColumns

	updated, err := scanLoan(r.db.QueryRowContext(
		ctx,
		query,
		loan.ID,
		loan.Status,
		loan.RemainingPayments,
		timeArg(loan.StartDate),
		timeArg(loan.NextPaymentDate),
		expectedVersion,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, loan.ID); getErr != nil {
				return domain.Loan{}, getErr
			}
			return domain.Loan{}, domain.ErrStaleLoan
		}
		if isMalformedID(err) {
			return domain.Loan{}, domain.ErrNotFound
		}
		logger.Error("loan repository update failed", err, logger.Fields{"loanId": loan.ID})
		return domain.Loan{}, fmt.Errorf("update loan: %w", err)
	}

	return updated, nil
}

func (r *LoanRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		if isMalformedID(err) {
			return []domain.Loan{}, nil
		}
		return nil, fmt.Errorf("list loans by owner: %w", err)
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return loans, nil
}

func scanLoan(row rowScanner) (domain.Loan, error) {
	var loan domain.Loan
	var startDate sql.NullTime
	var nextPaymentDate sql.NullTime

	if err := row.Scan(
		&loan.ID,
		&loan.OwnerID,
		&loan.Amount,
		&loan.TermMonths,
		&loan.MonthlyIncome,
		&loan.InterestRate,
		&loan.MonthlyPayment,
		&loan.TotalInterest,
		&loan.RemainingPayments,
		&loan.Status,
		&loan.Purpose,
		&loan.EmploymentStatus,
		&loan.Collateral,
		&startDate,
		&nextPaymentDate,
		&loan.Version,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	); err != nil {
		return domain.Loan{}, err
	}

	loan.StartDate = nullTimePtr(startDate)
	loan.NextPaymentDate = nullTimePtr(nextPaymentDate)
	return loan, nil
}
