package ledger

import (
	"errors"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// ErrSnapshotMismatch indicates an entry whose balance_after does not equal
// balance_before + amount. Such an entry must never be written.
var ErrSnapshotMismatch = errors.New("ledger entry snapshot mismatch: balance_after != balance_before + amount")

// Entry is a single append-only ledger row. Positive amounts are credits,
// negative amounts are debits. BalanceBefore and BalanceAfter snapshot the
// customer balance at write time so the ledger can be audited independently.
type Entry struct {
	ID            int64                  `json:"id"`
	CustomerID    int64                  `json:"customer_id"`
	Amount        int64                  `json:"amount"` // Signed, in cents/minor units
	Type          shared.TransactionType `json:"type"`
	Origin        shared.Origin          `json:"origin"`
	Description   string                 `json:"description"`
	BalanceBefore int64                  `json:"balance_before"`
	BalanceAfter  int64                  `json:"balance_after"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEntry builds a ledger entry and verifies the snapshot invariant
func NewEntry(customerID, amount int64, txType shared.TransactionType, origin shared.Origin, description string, balanceBefore, balanceAfter int64) (*Entry, error) {
	if balanceAfter != balanceBefore+amount {
		return nil, ErrSnapshotMismatch
	}

	return &Entry{
		CustomerID:    customerID,
		Amount:        amount,
		Type:          txType,
		Origin:        origin,
		Description:   description,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		CreatedAt:     time.Now(),
	}, nil
}

// Fold replays entries in order and returns the reproduced running balance.
// The balance_before of the first entry is taken as the account's balance prior
// to ledger start, which may be nonzero for accounts older than the ledger.
func Fold(entries []*Entry) int64 {
	if len(entries) == 0 {
		return 0
	}

	balance := entries[0].BalanceBefore
	for _, e := range entries {
		balance += e.Amount
	}
	return balance
}
