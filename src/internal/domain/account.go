package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}

type Account struct {
	ID                  string
	OwnerID             string
	AccountNumber       string
	AccountType         AccountType
	Balance             decimal.Decimal
	InterestRate        decimal.Decimal
	Purpose             string
	Active              bool
	LastTransactionDate *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int64
}

// IsValidAccountNumber reports whether value is a 10 digit numeric string.
func IsValidAccountNumber(value string) bool {
	if len(value) != 10 {
		return false
	}

	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
