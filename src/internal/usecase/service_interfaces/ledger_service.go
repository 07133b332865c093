package service_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/api-sage/securebank-core/src/internal/models"
)

type LedgerService interface {
	ApplyTransaction(ctx context.Context, req models.ApplyTransactionRequest) (domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
}
