// Package amortization prices loans: it underwrites the annual rate, derives
// the fixed monthly installment and builds the repayment schedule. Rates are
// annual percentages (5.5 means 5.5%). All arithmetic is exact decimal with
// HALF_UP rounding at the documented steps; nothing here touches float64.
package amortization

import (
	"time"

	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/api-sage/securebank-core/src/internal/money"
	"github.com/shopspring/decimal"
)

// MonthlyRateScale is the precision the monthly rate is rounded to before it
// enters the payment formula.
const MonthlyRateScale int32 = 10

// RatioScale is the precision of the debt-to-income ratio.
const RatioScale int32 = 2

const longTermThresholdMonths = 36

var (
	baseRate              = decimal.RequireFromString("5.00")
	longTermSurcharge     = decimal.RequireFromString("1.00")
	debtToIncomeSurcharge = decimal.RequireFromString("0.50")
	debtToIncomeThreshold = decimal.RequireFromString("0.30")

	monthsPerYearPercent = decimal.NewFromInt(1200)
	one                  = decimal.NewFromInt(1)
)

// Underwrite returns the annual interest rate offered for a loan. Surcharges
// stack on the base rate. monthlyIncome must be positive.
func Underwrite(amount decimal.Decimal, termMonths int, monthlyIncome decimal.Decimal) decimal.Decimal {
	rate := baseRate

	if termMonths > longTermThresholdMonths {
		rate = rate.Add(longTermSurcharge)
	}

	if DebtToIncome(amount, monthlyIncome).GreaterThan(debtToIncomeThreshold) {
		rate = rate.Add(debtToIncomeSurcharge)
	}

	return rate
}

// DebtToIncome is amount / monthlyIncome rounded to RatioScale.
func DebtToIncome(amount decimal.Decimal, monthlyIncome decimal.Decimal) decimal.Decimal {
	return money.DivHalfUp(amount, monthlyIncome, RatioScale)
}

// MonthlyRate converts an annual percentage into a monthly fraction.
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return money.DivHalfUp(annualRate, monthsPerYearPercent, MonthlyRateScale)
}

// MonthlyPayment is the level installment that repays principal over
// termMonths at annualRate:
//
//	P * r * (1+r)^n / ((1+r)^n - 1)
//
// rounded to currency scale. A zero rate degenerates to principal / n.
func MonthlyPayment(principal decimal.Decimal, termMonths int, annualRate decimal.Decimal) decimal.Decimal {
	monthlyRate := MonthlyRate(annualRate)
	n := decimal.NewFromInt(int64(termMonths))

	if monthlyRate.IsZero() {
		return money.DivHalfUp(principal, n, money.CurrencyScale)
	}

	factor := money.PowInt(one.Add(monthlyRate), termMonths)
	numerator := principal.Mul(monthlyRate.Mul(factor))

	return money.DivHalfUp(numerator, factor.Sub(one), money.CurrencyScale)
}

// TotalInterest is what the borrower pays on top of principal across the term.
func TotalInterest(monthlyPayment decimal.Decimal, termMonths int, principal decimal.Decimal) decimal.Decimal {
	total := monthlyPayment.Mul(decimal.NewFromInt(int64(termMonths)))
	return money.Currency(total.Sub(principal))
}

type Installment struct {
	Number           int
	DueDate          time.Time
	Payment          decimal.Decimal
	Interest         decimal.Decimal
	Principal        decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Schedule splits every installment into interest and principal. Interest for
// a period is the outstanding balance times the monthly rate, rounded to
// currency scale. The final installment repays whatever balance is left, so
// the schedule always ends at exactly zero. Due dates advance the same way a
// loan's next payment date does.
func Schedule(principal decimal.Decimal, termMonths int, annualRate decimal.Decimal, firstDue time.Time) []Installment {
	if termMonths <= 0 {
		return nil
	}

	monthlyRate := MonthlyRate(annualRate)
	payment := MonthlyPayment(principal, termMonths, annualRate)
	balance := principal
	due := firstDue

	installments := make([]Installment, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		interest := money.Currency(balance.Mul(monthlyRate))
		principalPart := payment.Sub(interest)
		amount := payment

		if i == termMonths || principalPart.GreaterThan(balance) {
			principalPart = balance
			amount = principalPart.Add(interest)
		}

		balance = balance.Sub(principalPart)
		installments = append(installments, Installment{
			Number:           i,
			DueDate:          due,
			Payment:          amount,
			Interest:         interest,
			Principal:        principalPart,
			RemainingBalance: balance,
		})

		if balance.IsZero() {
			break
		}
		due = clock.AddMonths(due, 1)
	}

	return installments
}
