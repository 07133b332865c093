package models

import (
	"strings"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/money"
	"github.com/shopspring/decimal"
)

type LoanApplicationRequest struct {
	OwnerID          string          `json:"ownerId"`
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"termMonths"`
	MonthlyIncome    decimal.Decimal `json:"monthlyIncome"`
	Purpose          string          `json:"purpose,omitempty"`
	EmploymentStatus string          `json:"employmentStatus,omitempty"`
	Collateral       string          `json:"collateral,omitempty"`
}

func (r LoanApplicationRequest) Validate() error {
	errs := &ValidationError{}

	if strings.TrimSpace(r.OwnerID) == "" {
		errs.add(domain.ErrInvalidLoanParameters, "ownerId is required")
	}

	if !money.IsPositiveAmount(r.Amount) {
		errs.add(domain.ErrInvalidLoanParameters, "amount must be greater than zero with at most 2 decimal places")
	}

	if r.TermMonths <= 0 {
		errs.add(domain.ErrInvalidLoanParameters, "termMonths must be greater than zero")
	}

	if !money.IsPositiveAmount(r.MonthlyIncome) {
		errs.add(domain.ErrInvalidLoanParameters, "monthlyIncome must be greater than zero with at most 2 decimal places")
	}

	return errs.orNil()
}
