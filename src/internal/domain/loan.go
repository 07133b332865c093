package domain

import (
	"fmt"
	"time"

	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "PENDING"
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusCompleted LoanStatus = "COMPLETED"
)

type Loan struct {
	ID                string
	OwnerID           string
	Amount            decimal.Decimal
	TermMonths        int
	MonthlyIncome     decimal.Decimal
	InterestRate      decimal.Decimal
	MonthlyPayment    decimal.Decimal
	TotalInterest     decimal.Decimal
	RemainingPayments int
	Status            LoanStatus
	Purpose           string
	EmploymentStatus  string
	Collateral        string
	StartDate         *time.Time
	NextPaymentDate   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// Approve moves a PENDING loan to APPROVED and schedules the first payment one
// month after now.
func (l *Loan) Approve(now time.Time) error {
	if l.Status != LoanStatusPending {
		return fmt.Errorf("%w: loan is %s, expected %s", ErrInvalidLoanState, l.Status, LoanStatusPending)
	}

	start := now
	next := clock.AddMonths(now, 1)
	l.Status = LoanStatusApproved
	l.StartDate = &start
	l.NextPaymentDate = &next
	return nil
}

// RecordPayment consumes one installment. The loan becomes ACTIVE, or
// COMPLETED once no installments remain.
func (l *Loan) RecordPayment() error {
	if l.Status != LoanStatusApproved && l.Status != LoanStatusActive {
		return fmt.Errorf("%w: loan is %s, expected %s or %s", ErrInvalidLoanState, l.Status, LoanStatusApproved, LoanStatusActive)
	}
	if l.RemainingPayments <= 0 {
		return ErrLoanAlreadyPaidOff
	}

	l.RemainingPayments--
	if l.NextPaymentDate != nil {
		next := clock.AddMonths(*l.NextPaymentDate, 1)
		l.NextPaymentDate = &next
	}

	l.Status = LoanStatusActive
	if l.RemainingPayments == 0 {
		l.Status = LoanStatusCompleted
	}
	return nil
}
