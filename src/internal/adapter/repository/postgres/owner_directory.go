package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/securebank-core/src/internal/domain"
)

type OwnerDirectory struct {
	db *sql.DB
}

func NewOwnerDirectory(db *sql.DB) *OwnerDirectory {
	return &OwnerDirectory{db: db}
}

// Add inserts an owner. Owners are provisioned outside the core; this exists
// for seeding and tests.
func (d *OwnerDirectory) Add(ctx context.Context, owner domain.Owner) (domain.Owner, error) {
	const query = `
INSERT INTO owners (username, full_name, active)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	if err := d.db.QueryRowContext(ctx, query, owner.Username, owner.FullName, owner.Active).Scan(&owner.ID, &owner.CreatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return domain.Owner{}, fmt.Errorf("%w: username %s", domain.ErrDuplicate, owner.Username)
		}
		return domain.Owner{}, fmt.Errorf("create owner: %w", err)
	}
	return owner, nil
}

func (d *OwnerDirectory) GetByID(ctx context.Context, id string) (domain.Owner, error) {
	const query = `SELECT id, username, full_name, active, created_at FROM owners WHERE id = $1`

	var owner domain.Owner
	if err := d.db.QueryRowContext(ctx, query, id).Scan(
		&owner.ID,
		&owner.Username,
		&owner.FullName,
		&owner.Active,
		&owner.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Owner{}, domain.ErrNotFound
		}
		return domain.Owner{}, fmt.Errorf("get owner: %w", err)
	}
	return owner, nil
}
