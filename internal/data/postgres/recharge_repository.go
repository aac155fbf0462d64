package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
)

// RechargeRepository implements the recharge.Repository interface for PostgreSQL
type RechargeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRechargeRepository creates a new PostgreSQL recharge repository
func NewRechargeRepository(logger *slog.Logger, db *persistence.PostgresDB) recharge.Repository {
	return &RechargeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the recharge record is
// created atomically with the ledger credit.
func (r *RechargeRepository) WithTx(tx pgx.Tx) recharge.Repository {
	return &RechargeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new recharge record and fills in the generated id.
// The unique index on transaction_id backs the one-record-per-event invariant.
func (r *RechargeRepository) Create(ctx context.Context, record *recharge.Record) error {
	query := `
		INSERT INTO recharges (customer_id, amount, payment_method, status, transaction_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		record.CustomerID,
		record.Amount,
		record.PaymentMethod,
		record.Status,
		record.TransactionID,
		record.CompletedAt,
	).Scan(&record.ID)
	if err != nil {
		r.logger.Error("Failed to create recharge record", "transaction_id", record.TransactionID, "error", err)
		return fmt.Errorf("failed to create recharge record: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the recharge record for a provider transaction id
func (r *RechargeRepository) GetByTransactionID(ctx context.Context, transactionID string) (*recharge.Record, error) {
	query := `
		SELECT id, customer_id, amount, payment_method, status, transaction_id, completed_at
		FROM recharges
		WHERE transaction_id = $1
	`

	var rec recharge.Record
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(
		&rec.ID,
		&rec.CustomerID,
		&rec.Amount,
		&rec.PaymentMethod,
		&rec.Status,
		&rec.TransactionID,
		&rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get recharge record", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get recharge record: %w", err)
	}

	return &rec, nil
}

// GetByCustomerID returns a page of the customer's recharges, newest first
func (r *RechargeRepository) GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*recharge.Record, error) {
	query := `
		SELECT id, customer_id, amount, payment_method, status, transaction_id, completed_at
		FROM recharges
		WHERE customer_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get recharge records", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to get recharge records: %w", err)
	}
	defer rows.Close()

	var records []*recharge.Record
	for rows.Next() {
		var rec recharge.Record
		err := rows.Scan(
			&rec.ID,
			&rec.CustomerID,
			&rec.Amount,
			&rec.PaymentMethod,
			&rec.Status,
			&rec.TransactionID,
			&rec.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recharge record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over recharge records: %w", err)
	}

	return records, nil
}
