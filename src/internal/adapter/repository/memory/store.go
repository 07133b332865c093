// Package memory holds in-process repositories. They share one Store so a
// ledger posting can update an account and append its transaction together.
package memory

import (
	"sync"
	"time"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	owners map[string]domain.Owner

	accounts         map[string]domain.Account
	accountsByNumber map[string]string

	transactions map[string][]domain.Transaction
	references   map[string]struct{}

	loans map[string]domain.Loan
	// insertion order, oldest first
	loanOrder []string

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		owners:           make(map[string]domain.Owner),
		accounts:         make(map[string]domain.Account),
		accountsByNumber: make(map[string]string),
		transactions:     make(map[string][]domain.Transaction),
		references:       make(map[string]struct{}),
		loans:            make(map[string]domain.Loan),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneAccount(a domain.Account) domain.Account {
	a.LastTransactionDate = copyTime(a.LastTransactionDate)
	return a
}

func cloneLoan(l domain.Loan) domain.Loan {
	l.StartDate = copyTime(l.StartDate)
	l.NextPaymentDate = copyTime(l.NextPaymentDate)
	return l
}
