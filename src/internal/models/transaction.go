package models

import (
	"strings"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/money"
	"github.com/shopspring/decimal"
)

type ApplyTransactionRequest struct {
	AccountID   string                     `json:"accountId"`
	Type        domain.TransactionType     `json:"type"`
	Amount      decimal.Decimal            `json:"amount"`
	Description string                     `json:"description,omitempty"`
	Category    domain.TransactionCategory `json:"category,omitempty"`
	Location    string                     `json:"location,omitempty"`
}

func (r ApplyTransactionRequest) Validate() error {
	errs := &ValidationError{}

	// An empty id can never name an account.
	if strings.TrimSpace(r.AccountID) == "" {
		errs.add(domain.ErrNotFound, "accountId is required")
	}

	if !r.Type.Valid() {
		errs.add(domain.ErrInvalidTransactionType, "type must be one of DEPOSIT, WITHDRAWAL, TRANSFER")
	}

	if !r.Amount.GreaterThan(decimal.Zero) {
		errs.add(domain.ErrInvalidAmount, "amount must be greater than zero")
	} else if !money.HasCurrencyScale(r.Amount) {
		errs.add(domain.ErrInvalidAmount, "amount must have at most 2 decimal places")
	}

	if _, err := domain.ParseTransactionCategory(string(r.Category)); err != nil {
		errs.add(domain.ErrInvalidCategory, "category must be one of INCOME, CASH, TRANSFER, LOAN_PAYMENT, OTHER")
	}

	return errs.orNil()
}

// DecodeApplyTransaction builds a request from external string values. It is
// where unknown transaction types and malformed amounts are turned away.
func DecodeApplyTransaction(accountID, rawType, rawAmount, description, rawCategory, location string) (ApplyTransactionRequest, error) {
	errs := &ValidationError{}

	txnType, err := domain.ParseTransactionType(rawType)
	if err != nil {
		errs.add(domain.ErrInvalidTransactionType, err.Error())
	}

	amount, err := money.Parse(rawAmount)
	if err != nil {
		errs.add(domain.ErrInvalidAmount, err.Error())
	}

	category, err := domain.ParseTransactionCategory(rawCategory)
	if err != nil {
		errs.add(domain.ErrInvalidCategory, err.Error())
	}

	if err := errs.orNil(); err != nil {
		return ApplyTransactionRequest{}, err
	}

	return ApplyTransactionRequest{
		AccountID:   strings.TrimSpace(accountID),
		Type:        txnType,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Category:    category,
		Location:    strings.TrimSpace(location),
	}, nil
}
