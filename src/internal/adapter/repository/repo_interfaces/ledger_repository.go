package repo_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type LedgerRepository interface {
	// PostTransaction stores the account's new balance together with txn as a
	// single unit. It fails with domain.ErrStaleAccount when the stored version
	// no longer equals expectedVersion and with domain.ErrReferenceCollision
	// when txn.ReferenceNumber is taken. On success the returned account
	// carries the incremented version.
	PostTransaction(ctx context.Context, account domain.Account, expectedVersion int64, txn domain.Transaction) (domain.Account, domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error)
}
