package payment

import (
	"fmt"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Event is a payment signal tracked against an external provider transaction.
// TxID is the provider-assigned identifier (PIX txid or card session id) and is
// the idempotency key for the whole confirmation path: at most one ledger
// credit is ever produced per TxID no matter how many times the provider
// redelivers the paid signal.
type Event struct {
	TxID       string               `json:"txid"`
	CustomerID int64                `json:"customer_id"`
	Amount     int64                `json:"amount"` // In cents/minor units
	Method     shared.PaymentMethod `json:"method"`
	Status     shared.PaymentStatus `json:"status"`
	CreatedAt  time.Time            `json:"created_at"`
	PaidAt     *time.Time           `json:"paid_at,omitempty"`
	ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
}

// NewEvent creates a pending payment event for a newly initiated charge
func NewEvent(txID string, customerID, amount int64, method shared.PaymentMethod, expiresAt *time.Time) *Event {
	return &Event{
		TxID:       txID,
		CustomerID: customerID,
		Amount:     amount,
		Method:     method,
		Status:     shared.PaymentStatusPending,
		CreatedAt:  time.Now(),
		ExpiresAt:  expiresAt,
	}
}

// ErrAlreadyProcessed indicates the claim for a payment event was rejected
// because another delivery of the same signal won the race or the event is in
// a terminal state. Not an error towards the provider: callers respond with
// success so the provider stops retrying.
type ErrAlreadyProcessed struct {
	TxID string
}

func (e ErrAlreadyProcessed) Error() string {
	return "payment event already processed: " + e.TxID
}

// Is implements errors.Is matching; a target with empty TxID matches any event
func (e ErrAlreadyProcessed) Is(target error) bool {
	t, ok := target.(ErrAlreadyProcessed)
	if !ok {
		return false
	}
	return t.TxID == "" || t.TxID == e.TxID
}

// ErrEventNotFound indicates an unknown external transaction id
type ErrEventNotFound struct {
	TxID string
}

func (e ErrEventNotFound) Error() string {
	return "payment event not found: " + e.TxID
}

// Is implements errors.Is matching; a target with empty TxID matches any event
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	return t.TxID == "" || t.TxID == e.TxID
}

// ErrAmountMismatch indicates the provider confirmed a different amount than
// the one the charge was created for. Flagged rather than credited.
type ErrAmountMismatch struct {
	TxID     string
	Expected int64
	Reported int64
}

func (e ErrAmountMismatch) Error() string {
	return fmt.Sprintf("payment amount mismatch for %s: charge %d, provider reported %d", e.TxID, e.Expected, e.Reported)
}
