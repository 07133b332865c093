package main

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/api-sage/securebank-core/src/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ownerSeeder is satisfied by both owner directories. Owners are provisioned
// outside the core, so only the demo seed writes them.
type ownerSeeder interface {
	Add(ctx context.Context, owner domain.Owner) (domain.Owner, error)
}

type seedResult struct {
	Owner        domain.Owner
	Account      domain.Account
	Transactions []domain.Transaction
	Loan         domain.Loan
}

// seedDemo provisions one owner with a savings account, posts a deposit and a
// withdrawal through the ledger, then applies for a loan, approves it and
// makes the first payment.
func seedDemo(ctx context.Context, owners ownerSeeder, accounts repo_interfaces.AccountRepository, app application, now time.Time) (seedResult, error) {
	suffix := uuid.NewString()[:8]

	owner, err := owners.Add(ctx, domain.Owner{
		Username: "demo-" + suffix,
		FullName: "Demo Customer",
		Active:   true,
	})
	if err != nil {
		return seedResult{}, fmt.Errorf("seed owner: %w", err)
	}

	account, err := accounts.Create(ctx, domain.Account{
		OwnerID:       owner.ID,
		AccountNumber: fmt.Sprintf("%010d", now.UnixNano()%10_000_000_000),
		AccountType:   domain.AccountTypeSavings,
		Balance:       decimal.Zero,
		InterestRate:  decimal.RequireFromString("2.50"),
		Purpose:       "demo",
		Active:        true,
	})
	if err != nil {
		return seedResult{}, fmt.Errorf("seed account: %w", err)
	}

	result := seedResult{Owner: owner, Account: account}
	for _, req := range []models.ApplyTransactionRequest{
		{AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: decimal.RequireFromString("2500.00"), Category: domain.TransactionCategoryIncome, Description: "opening deposit"},
		{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: decimal.RequireFromString("120.45"), Category: domain.TransactionCategoryCash, Description: "atm"},
	} {
		txn, err := app.ledger.ApplyTransaction(ctx, req)
		if err != nil {
			return seedResult{}, fmt.Errorf("seed %s: %w", req.Type, err)
		}
		result.Transactions = append(result.Transactions, txn)
	}

	loan, err := app.loans.Apply(ctx, models.LoanApplicationRequest{
		OwnerID:       owner.ID,
		Amount:        decimal.RequireFromString("10000.00"),
		TermMonths:    12,
		MonthlyIncome: decimal.RequireFromString("50000.00"),
		Purpose:       "home improvement",
	})
	if err != nil {
		return seedResult{}, fmt.Errorf("seed loan application: %w", err)
	}
	if _, err := app.loans.Approve(ctx, loan.ID); err != nil {
		return seedResult{}, fmt.Errorf("seed loan approval: %w", err)
	}
	if loan, err = app.loans.MakePayment(ctx, loan.ID); err != nil {
		return seedResult{}, fmt.Errorf("seed loan payment: %w", err)
	}
	result.Loan = loan

	logger.Info("demo data seeded", logger.Fields{
		"ownerId":           owner.ID,
		"accountNumber":     account.AccountNumber,
		"balance":           result.Transactions[len(result.Transactions)-1].BalanceAfter.StringFixed(2),
		"loanId":            loan.ID,
		"loanStatus":        loan.Status,
		"remainingPayments": loan.RemainingPayments,
	})
	return result, nil
}
