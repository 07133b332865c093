package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// ParseTransactionType decodes an external type name. It is the only place an
// unknown variant can enter the system.
func ParseTransactionType(raw string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

// Debits reports whether the type reduces the account balance.
func (t TransactionType) Debits() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeTransfer
}

// Apply returns the balance that results from posting amount against balance.
// A debit larger than the balance fails with ErrInsufficientFunds.
//
// TRANSFER only debits the source account; crediting a counterpart is not
// modelled here.
func (t TransactionType) Apply(balance decimal.Decimal, amount decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case TransactionTypeDeposit:
		return balance.Add(amount), nil
	case TransactionTypeWithdrawal, TransactionTypeTransfer:
		if balance.LessThan(amount) {
			return balance, ErrInsufficientFunds
		}
		return balance.Sub(amount), nil
	default:
		return balance, fmt.Errorf("%w: %q", ErrInvalidTransactionType, string(t))
	}
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

type TransactionCategory string

const (
	TransactionCategoryIncome      TransactionCategory = "INCOME"
	TransactionCategoryCash        TransactionCategory = "CASH"
	TransactionCategoryTransfer    TransactionCategory = "TRANSFER"
	TransactionCategoryLoanPayment TransactionCategory = "LOAN_PAYMENT"
	TransactionCategoryOther       TransactionCategory = "OTHER"
)

// ParseTransactionCategory accepts an empty value, which leaves the category unset.
func ParseTransactionCategory(raw string) (TransactionCategory, error) {
	c := TransactionCategory(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case "", TransactionCategoryIncome, TransactionCategoryCash, TransactionCategoryTransfer,
		TransactionCategoryLoanPayment, TransactionCategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

type Transaction struct {
	ID              string
	AccountID       string
	AccountNumber   string
	Amount          decimal.Decimal
	Type            TransactionType
	Category        TransactionCategory
	Description     string
	Location        string
	ReferenceNumber string
	Status          TransactionStatus
	BalanceAfter    decimal.Decimal
	CreatedAt       time.Time
}
