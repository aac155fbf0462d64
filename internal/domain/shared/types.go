package shared

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionTypeCredit     TransactionType = "credit"
	TransactionTypeDebit      TransactionType = "debit"
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeHold       TransactionType = "hold"
)

// IsValid reports whether t is a known transaction type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCredit, TransactionTypeDebit, TransactionTypePurchase,
		TransactionTypeRefund, TransactionTypeWithdrawal, TransactionTypeHold:
		return true
	}
	return false
}

// Origin identifies who initiated a balance mutation
type Origin string

const (
	OriginSystem   Origin = "system"
	OriginAdmin    Origin = "admin"
	OriginCustomer Origin = "customer"
)

// IsValid reports whether o is a known origin
func (o Origin) IsValid() bool {
	switch o {
	case OriginSystem, OriginAdmin, OriginCustomer:
		return true
	}
	return false
}

// PaymentStatus defines payment event states. Paid, failed and expired are terminal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed from s
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed || s == PaymentStatusExpired
}

// PaymentMethod identifies the payment rail a recharge came in on
type PaymentMethod string

const (
	PaymentMethodPix  PaymentMethod = "pix"
	PaymentMethodCard PaymentMethod = "card"
)

// RechargeStatus defines recharge record states
type RechargeStatus string

const (
	RechargeStatusCompleted RechargeStatus = "completed"
)

// NotificationType identifies outbound wallet events for the notification collaborator
type NotificationType string

const (
	NotificationBalanceUpdated      NotificationType = "balance_updated"
	NotificationPixPaymentConfirmed NotificationType = "pix_payment_confirmed"
	NotificationRechargeCompleted   NotificationType = "recharge_completed"
)

// OutboxStatus defines notification outbox publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Severity grades a reconciliation divergence
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityCritical Severity = "critical"
)
