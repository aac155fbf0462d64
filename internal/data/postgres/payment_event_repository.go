package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
)

// PaymentEventRepository implements the payment.Repository interface for
// PostgreSQL. Status transitions go through conditional updates exclusively;
// there is no generic status setter that could be misused as read-then-write.
type PaymentEventRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentEventRepository creates a new PostgreSQL payment event repository
func NewPaymentEventRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentEventRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. The confirmation pipeline
// uses this so the claim commits or rolls back together with the credit.
func (r *PaymentEventRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentEventRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new pending payment event
func (r *PaymentEventRepository) Create(ctx context.Context, event *payment.Event) error {
	query := `
		INSERT INTO payment_events (txid, customer_id, amount, method, status, created_at, paid_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		event.TxID,
		event.CustomerID,
		event.Amount,
		event.Method,
		event.Status,
		event.CreatedAt,
		event.PaidAt,
		event.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return payment.ErrAlreadyProcessed{TxID: event.TxID}
		}
		r.logger.Error("Failed to create payment event", "txid", event.TxID, "error", err)
		return fmt.Errorf("failed to create payment event: %w", err)
	}

	return nil
}

// GetByTxID retrieves a payment event by the provider transaction id
func (r *PaymentEventRepository) GetByTxID(ctx context.Context, txID string) (*payment.Event, error) {
	query := `
		SELECT txid, customer_id, amount, method, status, created_at, paid_at, expires_at
		FROM payment_events
		WHERE txid = $1
	`

	var e payment.Event
	err := r.querier.QueryRow(ctx, query, txID).Scan(
		&e.TxID,
		&e.CustomerID,
		&e.Amount,
		&e.Method,
		&e.Status,
		&e.CreatedAt,
		&e.PaidAt,
		&e.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrEventNotFound{TxID: txID}
		}
		r.logger.Error("Failed to get payment event", "txid", txID, "error", err)
		return nil, fmt.Errorf("failed to get payment event: %w", err)
	}

	return &e, nil
}

// ListPending returns pending events created before cutoff, oldest first
func (r *PaymentEventRepository) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Event, error) {
	query := `
		SELECT txid, customer_id, amount, method, status, created_at, paid_at, expires_at
		FROM payment_events
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.PaymentStatusPending, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list pending payment events", "error", err)
		return nil, fmt.Errorf("failed to list pending payment events: %w", err)
	}
	defer rows.Close()

	var events []*payment.Event
	for rows.Next() {
		var e payment.Event
		err := rows.Scan(
			&e.TxID,
			&e.CustomerID,
			&e.Amount,
			&e.Method,
			&e.Status,
			&e.CreatedAt,
			&e.PaidAt,
			&e.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over payment events: %w", err)
	}

	return events, nil
}

// Claim atomically transitions the event from pending to paid. The WHERE
// clause carries the idempotency guarantee: of any number of concurrent
// deliveries (webhook retries, webhook racing the poller) exactly one update
// matches a pending row, so exactly one caller sees claimed=true.
func (r *PaymentEventRepository) Claim(ctx context.Context, txID string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payment_events
		SET status = $1, paid_at = $2
		WHERE txid = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, shared.PaymentStatusPaid, paidAt, txID, shared.PaymentStatusPending)
	if err != nil {
		r.logger.Error("Failed to claim payment event", "txid", txID, "error", err)
		return false, fmt.Errorf("failed to claim payment event %s: %w", txID, err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkTerminal moves a pending event to failed or expired. Same conditional
// discipline as Claim: a row already terminal is left untouched.
func (r *PaymentEventRepository) MarkTerminal(ctx context.Context, txID string, status shared.PaymentStatus) error {
	if !status.IsTerminal() || status == shared.PaymentStatusPaid {
		return fmt.Errorf("invalid terminal status %q for payment event %s", status, txID)
	}

	query := `
		UPDATE payment_events
		SET status = $1
		WHERE txid = $2 AND status = $3
	`

	_, err := r.querier.Exec(ctx, query, status, txID, shared.PaymentStatusPending)
	if err != nil {
		r.logger.Error("Failed to mark payment event terminal", "txid", txID, "status", status, "error", err)
		return fmt.Errorf("failed to mark payment event %s as %s: %w", txID, status, err)
	}

	return nil
}
