package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/lock"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
)

// WalletServiceImpl implements the WalletService interface. Every balance
// write goes through the customer lock and a single transaction; reads skip
// both.
type WalletServiceImpl struct {
	db           TxRunner
	lockManager  *lock.Manager
	mutator      *mutator.BalanceMutator
	customerRepo customer.Repository
	ledgerRepo   ledger.Repository
	logger       *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(
	db TxRunner,
	lockManager *lock.Manager,
	balanceMutator *mutator.BalanceMutator,
	customerRepo customer.Repository,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
) WalletService {
	return &WalletServiceImpl{
		db:           db,
		lockManager:  lockManager,
		mutator:      balanceMutator,
		customerRepo: customerRepo,
		ledgerRepo:   ledgerRepo,
		logger:       logger,
	}
}

// CreateCustomer registers a new customer, rejecting duplicate PINs
func (s *WalletServiceImpl) CreateCustomer(ctx context.Context, pin int, name, email string, initialBalance int64) (*customer.Customer, error) {
	c, err := customer.NewCustomer(pin, name, email, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.customerRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Created customer", "customer_id", c.ID, "pin", c.PIN)
	return c, nil
}

// GetCustomer retrieves a customer by ID
func (s *WalletServiceImpl) GetCustomer(ctx context.Context, id int64) (*customer.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// GetCustomerByPIN resolves the human-facing PIN to a customer
func (s *WalletServiceImpl) GetCustomerByPIN(ctx context.Context, pin int) (*customer.Customer, error) {
	c, err := s.customerRepo.GetByPIN(ctx, pin)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, customer.ErrCustomerNotFound{}
	}
	return c, nil
}

// Purchase debits the customer for a number purchase
func (s *WalletServiceImpl) Purchase(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("purchase amount must be positive, got %d", amount)
	}
	if description == "" {
		description = "Compra de numero virtual"
	}
	return s.applyLocked(ctx, customerID, -amount, shared.TransactionTypePurchase, shared.OriginCustomer, description)
}

// Refund credits a previously debited amount back to the customer
func (s *WalletServiceImpl) Refund(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	if description == "" {
		description = "Reembolso de compra"
	}
	return s.applyLocked(ctx, customerID, amount, shared.TransactionTypeRefund, shared.OriginSystem, description)
}

// Adjust applies a signed admin correction to the balance
func (s *WalletServiceImpl) Adjust(ctx context.Context, customerID, amount int64, description string) (*mutator.Result, error) {
	if amount == 0 {
		return nil, fmt.Errorf("adjustment amount must be non-zero")
	}
	txType := shared.TransactionTypeCredit
	if amount < 0 {
		txType = shared.TransactionTypeDebit
	}
	if description == "" {
		description = "Ajuste administrativo"
	}
	return s.applyLocked(ctx, customerID, amount, txType, shared.OriginAdmin, description)
}

// applyLocked runs one balance mutation under the customer's operation lock
// inside a single transaction
func (s *WalletServiceImpl) applyLocked(
	ctx context.Context,
	customerID, amount int64,
	txType shared.TransactionType,
	origin shared.Origin,
	description string,
) (*mutator.Result, error) {
	var result *mutator.Result

	err := s.lockManager.ExecuteWithLock(ctx, customerID, func(ctx context.Context) error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			var err error
			result, err = s.mutator.ApplyTransaction(ctx, tx, customerID, amount, txType, origin, description)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Applied wallet operation",
		"customer_id", customerID,
		"type", string(txType),
		"amount", amount,
		"balance_after", result.BalanceAfter,
	)
	return result, nil
}

// DeactivateCustomer blocks further operations on the wallet. Runs under the
// customer lock so it cannot interleave with an in-flight mutation.
func (s *WalletServiceImpl) DeactivateCustomer(ctx context.Context, id int64) error {
	err := s.lockManager.ExecuteWithLock(ctx, id, func(ctx context.Context) error {
		return s.customerRepo.Deactivate(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deactivated customer", "customer_id", id)
	return nil
}

// GetTransactions retrieves a paginated statement, newest first
func (s *WalletServiceImpl) GetTransactions(ctx context.Context, customerID int64, page, perPage int) ([]*ledger.Entry, int64, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	entries, err := s.ledgerRepo.GetByCustomerID(ctx, customerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
