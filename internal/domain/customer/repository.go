package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines customer persistence operations
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByPIN(ctx context.Context, pin int) (*Customer, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Deactivate(ctx context.Context, id int64) error

	// LockForUpdate acquires a row lock on the customer and returns its current
	// state. Must be called within a transaction; the lock is held until commit
	// or rollback.
	LockForUpdate(ctx context.Context, id int64) (*Customer, error)

	// SetBalance writes the new balance snapshot. Callers must hold the row lock
	// via LockForUpdate within the same transaction.
	SetBalance(ctx context.Context, id int64, balance int64) error

	WithTx(tx pgx.Tx) Repository
}
