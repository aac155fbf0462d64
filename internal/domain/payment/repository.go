package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Repository defines payment event persistence operations
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByTxID(ctx context.Context, txID string) (*Event, error)

	// ListPending returns pending events created before cutoff, oldest first.
	// Used by the polling fallback and the expiry sweep.
	ListPending(ctx context.Context, cutoff time.Time, limit int) ([]*Event, error)

	// Claim performs the idempotency check-and-set: a single conditional UPDATE
	// that moves the event from pending to paid only if it is currently
	// pending. Exactly one caller across webhook and polling deliveries gets
	// claimed=true; everyone else gets claimed=false. Never read-modify-write.
	Claim(ctx context.Context, txID string, paidAt time.Time) (claimed bool, err error)

	// MarkTerminal moves a pending event to failed or expired. A no-op when the
	// event is already terminal (same conditional-update discipline as Claim).
	MarkTerminal(ctx context.Context, txID string, status shared.PaymentStatus) error

	WithTx(tx pgx.Tx) Repository
}
