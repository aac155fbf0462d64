package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	mongodata "github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
	"github.com/virtualnum-wallet-ledger/internal/wallet/reconcile"
)

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// WalletService defines balance and customer operations
type WalletService interface {
	// CreateCustomer registers a new customer
	// Returns customer.ErrDuplicatePIN if the PIN is already taken
	CreateCustomer(ctx context.Context, pin int, name, email string, initialBalance int64) (*customer.Customer, error)

	// GetCustomer retrieves a customer by ID
	// Returns customer.ErrCustomerNotFound if the customer doesn't exist
	GetCustomer(ctx context.Context, id int64) (*customer.Customer, error)

	// GetCustomerByPIN resolves the human-facing PIN to a customer
	// Returns customer.ErrCustomerNotFound if no customer holds the PIN
	GetCustomerByPIN(ctx context.Context, pin int) (*customer.Customer, error)

	// Purchase debits the customer for a number purchase
	// Returns customer.ErrInsufficientBalance when the balance cannot cover it
	Purchase(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error)

	// Refund credits a previously debited amount back to the customer
	Refund(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error)

	// Adjust applies a signed admin correction to the balance
	Adjust(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error)

	// GetTransactions retrieves a paginated statement, newest first
	// Returns entries, total count, and any error
	GetTransactions(ctx context.Context, customerID int64, page, perPage int) ([]*ledger.Entry, int64, error)

	// DeactivateCustomer blocks further operations on the wallet. The ledger
	// and stored balance are kept.
	// Returns customer.ErrCustomerNotFound if the customer doesn't exist
	DeactivateCustomer(ctx context.Context, id int64) error
}

// RechargeInitiation is what a customer needs to pay a freshly created charge
type RechargeInitiation struct {
	TxID      string
	Method    shared.PaymentMethod
	Amount    int64
	CopyPaste string // PIX only
	ExpiresAt time.Time
}

// RechargeService defines recharge checkout operations
type RechargeService interface {
	// InitiateRecharge creates a provider charge and records a pending payment
	// event for it
	InitiateRecharge(ctx context.Context, customerID, amount int64, method shared.PaymentMethod) (*RechargeInitiation, error)

	// QRCode renders the charge's copy-paste code as a PNG image
	QRCode(ctx context.Context, txID string) ([]byte, error)

	// GetRecharges retrieves a customer's completed recharges, newest first
	GetRecharges(ctx context.Context, customerID int64, page, perPage int) ([]*recharge.Record, error)
}

// WebhookService settles provider payment confirmations
type WebhookService interface {
	// ProcessPixConfirmation credits one confirmed PIX transfer
	// Returns payment.ErrAlreadyProcessed for redeliveries of settled events
	ProcessPixConfirmation(ctx context.Context, conf pix.Confirmation) error

	// ProcessCardSession settles a card checkout session by its provider status
	ProcessCardSession(ctx context.Context, sessionID, status string) error
}

// AuditService exposes the reconciliation engine over the admin API
type AuditService interface {
	AuditCustomer(ctx context.Context, customerID int64) (*reconcile.Report, error)
	ListDivergent(ctx context.Context, minSeverity shared.Severity) ([]*reconcile.Report, error)

	// ReportHistory returns recently archived reports, newest first
	ReportHistory(ctx context.Context, limit int64) ([]*mongodata.AuditReport, error)
}
