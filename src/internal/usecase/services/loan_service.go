package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/securebank-core/src/internal/amortization"
	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/lock"
	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/api-sage/securebank-core/src/internal/metrics"
	"github.com/api-sage/securebank-core/src/internal/models"
)

const (
	loanOperationApply   = "apply"
	loanOperationApprove = "approve"
	loanOperationPayment = "payment"

	maxTransitionAttempts = 5
)

var loanRejections = []error{
	domain.ErrInvalidLoanParameters,
	domain.ErrInvalidLoanState,
	domain.ErrLoanAlreadyPaidOff,
	domain.ErrNotFound,
}

type LoanService struct {
	loanRepo repo_interfaces.LoanRepository
	owners   repo_interfaces.OwnerDirectory
	locker   lock.Locker
	clock    clock.Clock
	metrics  *metrics.Collector
}

func NewLoanService(
	loanRepo repo_interfaces.LoanRepository,
	owners repo_interfaces.OwnerDirectory,
	locker lock.Locker,
	clk clock.Clock,
	collector *metrics.Collector,
) *LoanService {
	if clk == nil {
		clk = clock.System()
	}

	return &LoanService{
		loanRepo: loanRepo,
		owners:   owners,
		locker:   locker,
		clock:    clk,
		metrics:  collector,
	}
}

// Apply underwrites and stores a new PENDING loan. Rate, installment and total
// interest are fixed here and never recomputed.
func (s *LoanService) Apply(ctx context.Context, req models.LoanApplicationRequest) (loan domain.Loan, err error) {
	defer func() {
		s.metrics.RecordLoanOperation(loanOperationApply, metrics.Outcome(err, loanRejections...))
	}()

	logger.Info("loan service apply request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("loan service apply validation failed", err, nil)
		return domain.Loan{}, err
	}

	ownerID := strings.TrimSpace(req.OwnerID)
	if _, err := s.owners.GetByID(ctx, ownerID); err != nil {
		logger.Error("loan service apply owner lookup failed", err, logger.Fields{"ownerId": ownerID})
		return domain.Loan{}, err
	}

	rate := amortization.Underwrite(req.Amount, req.TermMonths, req.MonthlyIncome)
	payment := amortization.MonthlyPayment(req.Amount, req.TermMonths, rate)

	created, err := s.loanRepo.Create(ctx, domain.Loan{
		OwnerID:           ownerID,
		Amount:            req.Amount,
		TermMonths:        req.TermMonths,
		MonthlyIncome:     req.MonthlyIncome,
		InterestRate:      rate,
		MonthlyPayment:    payment,
		TotalInterest:     amortization.TotalInterest(payment, req.TermMonths, req.Amount),
		RemainingPayments: req.TermMonths,
		Status:            domain.LoanStatusPending,
		Purpose:           strings.TrimSpace(req.Purpose),
		EmploymentStatus:  strings.TrimSpace(req.EmploymentStatus),
		Collateral:        strings.TrimSpace(req.Collateral),
	})
	if err != nil {
		logger.Error("loan service apply repository failed", err, logger.Fields{"ownerId": ownerID})
		return domain.Loan{}, err
	}

	s.metrics.ObserveLoanApplication(created.Amount)
	logger.Info("loan service apply success", logger.Fields{
		"loanId":         created.ID,
		"interestRate":   created.InterestRate.StringFixed(2),
		"monthlyPayment": created.MonthlyPayment.StringFixed(2),
	})
	return created, nil
}

func (s *LoanService) Approve(ctx context.Context, loanID string) (domain.Loan, error) {
	return s.transition(ctx, loanOperationApprove, loanID, func(loan *domain.Loan) error {
		return loan.Approve(s.clock.Now())
	})
}

// MakePayment records one installment. It does not move money; debiting an
// account for the installment is the caller's job.
func (s *LoanService) MakePayment(ctx context.Context, loanID string) (domain.Loan, error) {
	return s.transition(ctx, loanOperationPayment, loanID, func(loan *domain.Loan) error {
		return loan.RecordPayment()
	})
}

func (s *LoanService) transition(ctx context.Context, operation string, loanID string, apply func(*domain.Loan) error) (result domain.Loan, err error) {
	defer func() {
		s.metrics.RecordLoanOperation(operation, metrics.Outcome(err, loanRejections...))
	}()

	loanID = strings.TrimSpace(loanID)
	logger.Info("loan service "+operation+" request", logger.Fields{"loanId": loanID})

	err = s.locker.WithLock(ctx, lock.LoanKey(loanID), func(ctx context.Context) error {
		var lastErr error
		for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
			loan, err := s.loanRepo.GetByID(ctx, loanID)
			if err != nil {
				return err
			}

			expectedVersion := loan.Version
			if err := apply(&loan); err != nil {
				return err
			}

			updated, err := s.loanRepo.Update(ctx, loan, expectedVersion)
			if err == nil {
				result = updated
				return nil
			}
			if !errors.Is(err, domain.ErrStaleLoan) {
				return err
			}
			lastErr = err
		}
		return fmt.Errorf("%s loan after %d attempts: %w", operation, maxTransitionAttempts, lastErr)
	})
	if err != nil {
		logger.Error("loan service "+operation+" failed", err, logger.Fields{"loanId": loanID})
		return domain.Loan{}, err
	}

	logger.Info("loan service "+operation+" success", logger.Fields{
		"loanId":            result.ID,
		"status":            result.Status,
		"remainingPayments": result.RemainingPayments,
	})
	return result, nil
}

func (s *LoanService) GetLoan(ctx context.Context, loanID string) (domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, strings.TrimSpace(loanID))
}

// ListLoans returns the owner's loans, newest first.
func (s *LoanService) ListLoans(ctx context.Context, ownerID string) ([]domain.Loan, error) {
	ownerID = strings.TrimSpace(ownerID)
	if _, err := s.owners.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.loanRepo.ListByOwner(ctx, ownerID)
}

// Schedule returns the full amortization table of a loan. Before approval the
// due dates are projected from the current time.
func (s *LoanService) Schedule(ctx context.Context, loanID string) ([]amortization.Installment, error) {
	loan, err := s.loanRepo.GetByID(ctx, strings.TrimSpace(loanID))
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	if loan.StartDate != nil {
		start = *loan.StartDate
	}

	return amortization.Schedule(loan.Amount, loan.TermMonths, loan.InterestRate, clock.AddMonths(start, 1)), nil
}
