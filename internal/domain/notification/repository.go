package notification

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Repository defines notification outbox persistence operations
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetPending(ctx context.Context, limit int) ([]*Event, error)
	IncrementAttempts(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	WithTx(tx pgx.Tx) Repository
}
