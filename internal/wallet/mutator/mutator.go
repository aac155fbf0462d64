// Package mutator holds the single code path allowed to change a customer's
// stored balance. Every change is a ledger append plus a snapshot update in
// one database transaction, so the invariant balance == fold(ledger) can only
// be broken by writes that bypass this package.
package mutator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/domain/notification"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// Result reports the balance snapshots around an applied transaction
type Result struct {
	Entry         *ledger.Entry
	BalanceBefore int64
	BalanceAfter  int64
}

// BalanceMutator applies balance changes. It does not acquire the customer
// operation lock itself: callers hold it, which lets them compose the
// mutation with other steps (recharge record creation, claim) in the same
// transaction under one lock acquisition.
type BalanceMutator struct {
	customerRepo customer.Repository
	ledgerRepo   ledger.Repository
	outboxRepo   notification.Repository
	logger       *slog.Logger
}

// NewBalanceMutator creates a balance mutator
func NewBalanceMutator(
	customerRepo customer.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo notification.Repository,
	logger *slog.Logger,
) *BalanceMutator {
	return &BalanceMutator{
		customerRepo: customerRepo,
		ledgerRepo:   ledgerRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

// ApplyTransaction applies a signed amount to the customer balance within the
// given database transaction. It locks the customer row, verifies the debit
// would not drive the balance negative, writes the new snapshot, appends the
// ledger entry and stages the balance_updated notification. Either all of
// those commit or none do.
func (m *BalanceMutator) ApplyTransaction(
	ctx context.Context,
	tx pgx.Tx,
	customerID int64,
	amount int64,
	txType shared.TransactionType,
	origin shared.Origin,
	description string,
) (*Result, error) {
	customerRepoTx := m.customerRepo.WithTx(tx)

	// The row lock keeps the read-compute-write cycle safe even if a second
	// process instance ever runs alongside the in-process operation lock.
	c, err := customerRepoTx.LockForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !c.Active {
		return nil, customer.ErrCustomerInactive{CustomerID: customerID}
	}

	balanceBefore := c.Balance
	balanceAfter := balanceBefore + amount

	if amount < 0 && balanceAfter < 0 {
		m.logger.Warn("Debit rejected, would drive balance negative",
			"customer_id", customerID,
			"balance", balanceBefore,
			"amount", amount,
		)
		return nil, customer.ErrInsufficientBalance{
			CustomerID: customerID,
			Balance:    balanceBefore,
			Requested:  -amount,
		}
	}

	entry, err := ledger.NewEntry(customerID, amount, txType, origin, description, balanceBefore, balanceAfter)
	if err != nil {
		return nil, err
	}

	if err := customerRepoTx.SetBalance(ctx, customerID, balanceAfter); err != nil {
		return nil, err
	}

	if err := m.ledgerRepo.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, err
	}

	// Stage the balance_updated event in the same transaction. Publishing to
	// the notification collaborator happens later and is best-effort; a
	// delivery failure never rolls back the mutation.
	event, err := notification.NewEvent(customerID, shared.NotificationBalanceUpdated, notification.BalanceUpdatedPayload{
		CustomerID:    customerID,
		Amount:        amount,
		Type:          txType,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Description:   description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build balance_updated event: %w", err)
	}
	if err := m.outboxRepo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}

	m.logger.Info("Balance mutated",
		"customer_id", customerID,
		"amount", amount,
		"type", txType,
		"origin", origin,
		"balance_before", balanceBefore,
		"balance_after", balanceAfter,
	)

	return &Result{
		Entry:         entry,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}, nil
}
