package models

import (
	"testing"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransactionRequestValidate(t *testing.T) {
	valid := ApplyTransactionRequest{
		AccountID: "acc-1",
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.RequireFromString("10.25"),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*ApplyTransactionRequest)
		want    error
		message string
	}{
		{
			name:    "zero amount",
			mutate:  func(r *ApplyTransactionRequest) { r.Amount = decimal.Zero },
			want:    domain.ErrInvalidAmount,
			message: "amount must be greater than zero",
		},
		{
			name:    "negative amount",
			mutate:  func(r *ApplyTransactionRequest) { r.Amount = decimal.RequireFromString("-1") },
			want:    domain.ErrInvalidAmount,
			message: "amount must be greater than zero",
		},
		{
			name:    "three decimals",
			mutate:  func(r *ApplyTransactionRequest) { r.Amount = decimal.RequireFromString("1.005") },
			want:    domain.ErrInvalidAmount,
			message: "amount must have at most 2 decimal places",
		},
		{
			name:    "unknown type",
			mutate:  func(r *ApplyTransactionRequest) { r.Type = "REFUND" },
			want:    domain.ErrInvalidTransactionType,
			message: "type must be one of DEPOSIT, WITHDRAWAL, TRANSFER",
		},
		{
			name:    "unknown category on a valid deposit",
			mutate:  func(r *ApplyTransactionRequest) { r.Category = "GAMBLING" },
			want:    domain.ErrInvalidCategory,
			message: "category must be one of INCOME, CASH, TRANSFER, LOAN_PAYMENT, OTHER",
		},
		{
			name:    "missing account",
			mutate:  func(r *ApplyTransactionRequest) { r.AccountID = " " },
			want:    domain.ErrNotFound,
			message: "accountId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := req.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestApplyTransactionRequestCollectsEveryProblem(t *testing.T) {
	err := ApplyTransactionRequest{AccountID: "acc", Type: "X", Amount: decimal.Zero}.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, "type must be one of DEPOSIT, WITHDRAWAL, TRANSFER; amount must be greater than zero", err.Error())
}

func TestDecodeApplyTransaction(t *testing.T) {
	req, err := DecodeApplyTransaction(" acc-1 ", "withdrawal", "12.50", " rent ", "transfer", "")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", req.AccountID)
	assert.Equal(t, domain.TransactionTypeWithdrawal, req.Type)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "rent", req.Description)
	assert.Equal(t, domain.TransactionCategoryTransfer, req.Category)

	_, err = DecodeApplyTransaction("acc-1", "CHARGEBACK", "1", "", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)

	_, err = DecodeApplyTransaction("acc-1", "DEPOSIT", "ten", "", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = DecodeApplyTransaction("acc-1", "DEPOSIT", "1", "", "lottery", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
	assert.NotErrorIs(t, err, domain.ErrInvalidTransactionType)
}

func TestLoanApplicationRequestValidate(t *testing.T) {
	valid := LoanApplicationRequest{
		OwnerID:       "owner-1",
		Amount:        decimal.RequireFromString("10000"),
		TermMonths:    12,
		MonthlyIncome: decimal.RequireFromString("5000"),
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*LoanApplicationRequest){
		"zero amount":     func(r *LoanApplicationRequest) { r.Amount = decimal.Zero },
		"zero term":       func(r *LoanApplicationRequest) { r.TermMonths = 0 },
		"negative term":   func(r *LoanApplicationRequest) { r.TermMonths = -3 },
		"zero income":     func(r *LoanApplicationRequest) { r.MonthlyIncome = decimal.Zero },
		"fractional cent": func(r *LoanApplicationRequest) { r.Amount = decimal.RequireFromString("100.001") },
		"missing owner":   func(r *LoanApplicationRequest) { r.OwnerID = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			assert.ErrorIs(t, req.Validate(), domain.ErrInvalidLoanParameters)
		})
	}
}
