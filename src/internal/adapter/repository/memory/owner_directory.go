package memory

import (
	"context"
	"strings"

	"github.com/api-sage/securebank-core/src/internal/domain"
	"github.com/google/uuid"
)

type OwnerDirectory struct {
	store *Store
}

func NewOwnerDirectory(store *Store) *OwnerDirectory {
	return &OwnerDirectory{store: store}
}

// Add registers an owner. Owners are provisioned outside the core, so this is
// only used for seeding and tests.
func (d *OwnerDirectory) Add(_ context.Context, owner domain.Owner) (domain.Owner, error) {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	if strings.TrimSpace(owner.ID) == "" {
		owner.ID = uuid.NewString()
	}
	if _, exists := d.store.owners[owner.ID]; exists {
		return domain.Owner{}, domain.ErrDuplicate
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = d.store.now()
	}

	d.store.owners[owner.ID] = owner
	return owner, nil
}

func (d *OwnerDirectory) GetByID(_ context.Context, id string) (domain.Owner, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()

	owner, ok := d.store.owners[id]
	if !ok {
		return domain.Owner{}, domain.ErrNotFound
	}
	return owner, nil
}
