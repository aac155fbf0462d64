// Package postgres provides PostgreSQL implementations of the domain
// repositories. All money columns are int64 minor units; the customer balance
// is only ever written through the balance mutator's transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
)

// CustomerRepository implements the customer.Repository interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Repository {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *CustomerRepository) WithTx(tx pgx.Tx) customer.Repository {
	return &CustomerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new customer and fills in the generated id
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (pin, name, email, balance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		c.PIN,
		c.Name,
		c.Email,
		c.Balance,
		c.Active,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return customer.ErrDuplicatePIN{PIN: c.PIN}
		}
		r.logger.Error("Failed to create customer", "error", err)
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	query := `
		SELECT id, pin, name, email, balance, active, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.PIN,
		&c.Name,
		&c.Email,
		&c.Balance,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

// GetByPIN retrieves a customer by its human-facing PIN
func (r *CustomerRepository) GetByPIN(ctx context.Context, pin int) (*customer.Customer, error) {
	query := `
		SELECT id, pin, name, email, balance, active, created_at, updated_at
		FROM customers
		WHERE pin = $1
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, pin).Scan(
		&c.ID,
		&c.PIN,
		&c.Name,
		&c.Email,
		&c.Balance,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No customer with this PIN
		}
		r.logger.Error("Failed to get customer by PIN", "pin", pin, "error", err)
		return nil, fmt.Errorf("failed to get customer by PIN: %w", err)
	}

	return &c, nil
}

// ListIDs returns the ids of all customers, active or not. Used by the
// reconciliation sweep.
func (r *CustomerRepository) ListIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM customers ORDER BY id`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list customer ids", "error", err)
		return nil, fmt.Errorf("failed to list customer ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over customer ids: %w", err)
	}

	return ids, nil
}

// Deactivate flags the customer inactive. Customers are never deleted.
func (r *CustomerRepository) Deactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE customers
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate customer", "id", id, "error", err)
		return fmt.Errorf("failed to deactivate customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return customer.ErrCustomerNotFound{CustomerID: id}
	}

	return nil
}

// LockForUpdate obtains a row lock on the customer and returns its current
// state. Must be called within a transaction.
func (r *CustomerRepository) LockForUpdate(ctx context.Context, id int64) (*customer.Customer, error) {
	query := `
		SELECT id, pin, name, email, balance, active, created_at, updated_at
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.PIN,
		&c.Name,
		&c.Email,
		&c.Balance,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to lock customer for update", "id", id, "error", err)
		return nil, fmt.Errorf("failed to lock customer for update: %w", err)
	}

	return &c, nil
}

// SetBalance writes the balance snapshot. The caller must hold the row lock
// acquired by LockForUpdate within the same transaction.
func (r *CustomerRepository) SetBalance(ctx context.Context, id int64, balance int64) error {
	query := `
		UPDATE customers
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, balance, id)
	if err != nil {
		r.logger.Error("Failed to set customer balance", "id", id, "error", err)
		return fmt.Errorf("failed to set customer balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return customer.ErrCustomerNotFound{CustomerID: id}
	}

	return nil
}
