package recharge

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Record is the user-facing summary row for a successfully applied payment
// event. Exactly one record exists per external transaction id; it is created
// in the same database transaction as the ledger credit.
type Record struct {
	ID            int64                 `json:"id"`
	CustomerID    int64                 `json:"customer_id"`
	Amount        int64                 `json:"amount"` // In cents/minor units
	PaymentMethod shared.PaymentMethod  `json:"payment_method"`
	Status        shared.RechargeStatus `json:"status"`
	TransactionID string                `json:"transaction_id"` // Provider txid / session id
	CompletedAt   time.Time             `json:"completed_at"`
}

// NewRecord builds a completed recharge record for a credited payment event
func NewRecord(customerID, amount int64, method shared.PaymentMethod, transactionID string, completedAt time.Time) *Record {
	return &Record{
		CustomerID:    customerID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        shared.RechargeStatusCompleted,
		TransactionID: transactionID,
		CompletedAt:   completedAt,
	}
}

// Repository defines recharge record persistence operations
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Record, error)
	GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*Record, error)
	WithTx(tx pgx.Tx) Repository
}
