package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// The balance_transactions table is append-only; there is deliberately no
// update or delete here.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the append is atomic with
// the balance snapshot update.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts a new ledger entry and fills in its generated ID
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO balance_transactions (customer_id, amount, type, origin, description, balance_before, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		entry.CustomerID,
		entry.Amount,
		entry.Type,
		entry.Origin,
		entry.Description,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to append ledger entry", "customer_id", entry.CustomerID, "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByCustomerID returns a page of the customer's entries, newest first
func (r *LedgerRepository) GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, customer_id, amount, type, origin, description, balance_before, balance_after, created_at
		FROM balance_transactions
		WHERE customer_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		err := rows.Scan(
			&e.ID,
			&e.CustomerID,
			&e.Amount,
			&e.Type,
			&e.Origin,
			&e.Description,
			&e.BalanceBefore,
			&e.BalanceAfter,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

// CountByCustomerID returns the total number of entries for the customer
func (r *LedgerRepository) CountByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM balance_transactions WHERE customer_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "customer_id", customerID, "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// FoldBalance computes the expected balance from the full ledger in a single
// query: the balance_before of the oldest entry (the account's pre-ledger
// balance, normally zero) plus the sum of all signed amounts.
func (r *LedgerRepository) FoldBalance(ctx context.Context, customerID int64) (int64, bool, error) {
	query := `
		SELECT
			(SELECT balance_before FROM balance_transactions WHERE customer_id = $1 ORDER BY id ASC LIMIT 1),
			COALESCE(SUM(amount), 0)
		FROM balance_transactions
		WHERE customer_id = $1
	`

	var base *int64
	var sum int64
	err := r.querier.QueryRow(ctx, query, customerID).Scan(&base, &sum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.Error("Failed to fold ledger balance", "customer_id", customerID, "error", err)
		return 0, false, fmt.Errorf("failed to fold ledger balance: %w", err)
	}

	if base == nil {
		// No entries for this customer
		return 0, false, nil
	}

	return *base + sum, true, nil
}
