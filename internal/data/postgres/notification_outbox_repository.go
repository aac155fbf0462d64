package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/notification"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
)

// NotificationOutboxRepository implements the notification.Repository
// interface for PostgreSQL
type NotificationOutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewNotificationOutboxRepository creates a new PostgreSQL notification outbox repository
func NewNotificationOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) notification.Repository {
	return &NotificationOutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so staging a notification is
// atomic with the balance mutation it describes.
func (r *NotificationOutboxRepository) WithTx(tx pgx.Tx) notification.Repository {
	return &NotificationOutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stages a new notification in pending status
func (r *NotificationOutboxRepository) Create(ctx context.Context, event *notification.Event) error {
	query := `
		INSERT INTO notification_outbox (customer_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		event.CustomerID,
		event.Type,
		event.Payload,
		event.Status,
		event.Attempts,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		r.logger.Error("Failed to create notification outbox event", "customer_id", event.CustomerID, "type", event.Type, "error", err)
		return fmt.Errorf("failed to create notification outbox event: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending notifications in FIFO order
func (r *NotificationOutboxRepository) GetPending(ctx context.Context, limit int) ([]*notification.Event, error) {
	query := `
		SELECT id, customer_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM notification_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending notifications", "error", err)
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var events []*notification.Event
	for rows.Next() {
		var e notification.Event
		err := rows.Scan(
			&e.ID,
			&e.CustomerID,
			&e.Type,
			&e.Payload,
			&e.Status,
			&e.Attempts,
			&e.CreatedAt,
			&e.LastAttemptAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over notification events: %w", err)
	}

	return events, nil
}

// IncrementAttempts bumps the attempt counter after a failed publish
func (r *NotificationOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_attempt_at = NOW()
		WHERE id = $1
	`

	_, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to increment notification attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment notification attempts: %w", err)
	}

	return nil
}

// UpdateStatus moves a notification to processed or failed-to-publish
func (r *NotificationOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE notification_outbox
		SET status = $1, last_attempt_at = NOW()
		WHERE id = $2
	`

	_, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update notification status", "id", id, "status", status, "error", err)
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	return nil
}
