package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. The ledger is append-only:
// there is no update or delete operation and never will be.
type Repository interface {
	// Append inserts a new entry and fills in its generated ID
	Append(ctx context.Context, entry *Entry) error

	// GetByCustomerID returns a page of the customer's entries ordered by id descending
	GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*Entry, error)

	// CountByCustomerID returns the total number of entries for the customer
	CountByCustomerID(ctx context.Context, customerID int64) (int64, error)

	// FoldBalance computes the expected balance for a customer from the full
	// ledger: the balance_before of the oldest entry plus the sum of all
	// signed amounts. Returns (0, false, nil) when the customer has no entries.
	FoldBalance(ctx context.Context, customerID int64) (expected int64, hasEntries bool, err error)

	WithTx(tx pgx.Tx) Repository
}
