package notification

import (
	"encoding/json"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Event is an outbound wallet notification staged in the transactional outbox.
// Rows are written in the same database transaction as the balance mutation
// they describe; the dispatcher later publishes them to the notification
// collaborator. Delivery failures never roll back a mutation.
type Event struct {
	ID            int64                   `json:"id"`
	CustomerID    int64                   `json:"customer_id"`
	Type          shared.NotificationType `json:"type"`
	Payload       json.RawMessage         `json:"payload"`
	Status        shared.OutboxStatus     `json:"status"`
	Attempts      int                     `json:"attempts"`
	CreatedAt     time.Time               `json:"created_at"`
	LastAttemptAt *time.Time              `json:"last_attempt_at,omitempty"`
}

// BalanceUpdatedPayload is the payload for balance_updated events
type BalanceUpdatedPayload struct {
	CustomerID    int64                  `json:"customer_id"`
	Amount        int64                  `json:"amount"`
	Type          shared.TransactionType `json:"type"`
	BalanceBefore int64                  `json:"balance_before"`
	BalanceAfter  int64                  `json:"balance_after"`
	Description   string                 `json:"description"`
}

// PaymentConfirmedPayload is the payload for pix_payment_confirmed and
// recharge_completed events
type PaymentConfirmedPayload struct {
	CustomerID    int64                `json:"customer_id"`
	TransactionID string               `json:"transaction_id"`
	Amount        int64                `json:"amount"`
	PaymentMethod shared.PaymentMethod `json:"payment_method"`
	PaidAt        time.Time            `json:"paid_at"`
}

// NewEvent marshals payload and stages a pending notification
func NewEvent(customerID int64, eventType shared.NotificationType, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		CustomerID: customerID,
		Type:       eventType,
		Payload:    raw,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

func (e *Event) MarkAsProcessed() {
	e.Status = shared.OutboxStatusProcessed
	now := time.Now()
	e.LastAttemptAt = &now
}

func (e *Event) MarkAsFailed() {
	e.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	e.LastAttemptAt = &now
}
