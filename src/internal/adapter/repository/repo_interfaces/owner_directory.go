package repo_interfaces

import (
	"context"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type OwnerDirectory interface {
	GetByID(ctx context.Context, id string) (domain.Owner, error)
}
