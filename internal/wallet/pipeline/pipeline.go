// Package pipeline orchestrates payment confirmation: dedup claim, customer
// lock, balance credit and recharge record creation. The claim and the credit
// live in one database transaction, so a failed credit rolls the claim back
// to pending and a later redelivery can reclaim it. There is no window where
// an event is claimed but uncredited.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/domain/notification"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/lock"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
)

// TxRunner runs a function within a database transaction, committing on nil
// and rolling back on error. Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Confirmation is an applied payment confirmation
type Confirmation struct {
	Event         *payment.Event
	Record        *recharge.Record
	BalanceBefore int64
	BalanceAfter  int64
}

// ConfirmationPipeline turns provider paid signals into exactly-once balance
// credits. Webhook deliveries and the polling fallback both enter here.
type ConfirmationPipeline struct {
	db           TxRunner
	lockManager  *lock.Manager
	mutator      *mutator.BalanceMutator
	paymentRepo  payment.Repository
	rechargeRepo recharge.Repository
	outboxRepo   notification.Repository
	logger       *slog.Logger
}

// NewConfirmationPipeline creates a confirmation pipeline
func NewConfirmationPipeline(
	db TxRunner,
	lockManager *lock.Manager,
	balanceMutator *mutator.BalanceMutator,
	paymentRepo payment.Repository,
	rechargeRepo recharge.Repository,
	outboxRepo notification.Repository,
	logger *slog.Logger,
) *ConfirmationPipeline {
	return &ConfirmationPipeline{
		db:           db,
		lockManager:  lockManager,
		mutator:      balanceMutator,
		paymentRepo:  paymentRepo,
		rechargeRepo: rechargeRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

// ConfirmPayment processes a provider paid signal for the given external
// transaction id. Returns payment.ErrAlreadyProcessed when another delivery
// won the claim; callers must treat that as success towards the provider.
// reportedAmount is the amount the provider says was paid; a mismatch with
// the charge is rejected without credit. paidAt is the provider payment time.
func (p *ConfirmationPipeline) ConfirmPayment(ctx context.Context, txID string, reportedAmount int64, paidAt time.Time) (*Confirmation, error) {
	event, err := p.paymentRepo.GetByTxID(ctx, txID)
	if err != nil {
		return nil, err
	}

	// Cheap short-circuit for redeliveries of settled events: no lock, no
	// transaction. The authoritative check is the conditional claim below.
	if event.Status.IsTerminal() {
		p.logger.Info("Payment event already terminal, skipping", "txid", txID, "status", event.Status)
		return nil, payment.ErrAlreadyProcessed{TxID: txID}
	}

	if reportedAmount != 0 && reportedAmount != event.Amount {
		return nil, payment.ErrAmountMismatch{TxID: txID, Expected: event.Amount, Reported: reportedAmount}
	}

	var confirmation *Confirmation

	err = p.lockManager.ExecuteWithLock(ctx, event.CustomerID, func(ctx context.Context) error {
		return p.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			claimed, err := p.paymentRepo.WithTx(tx).Claim(ctx, txID, paidAt)
			if err != nil {
				return err
			}
			if !claimed {
				// Another delivery got here first (webhook retry, or the
				// poller racing the webhook).
				return payment.ErrAlreadyProcessed{TxID: txID}
			}

			result, err := p.mutator.ApplyTransaction(ctx, tx,
				event.CustomerID,
				event.Amount,
				shared.TransactionTypeCredit,
				shared.OriginSystem,
				fmt.Sprintf("Recarga via %s - %s", event.Method, txID),
			)
			if err != nil {
				// Rolling back also reverts the claim to pending so a
				// redelivery can retry the whole confirmation.
				return fmt.Errorf("credit failed for claimed payment %s: %w", txID, err)
			}

			record := recharge.NewRecord(event.CustomerID, event.Amount, event.Method, txID, paidAt)
			if err := p.rechargeRepo.WithTx(tx).Create(ctx, record); err != nil {
				return err
			}

			if err := p.stageConfirmationEvents(ctx, tx, event, txID, paidAt); err != nil {
				return err
			}

			confirmation = &Confirmation{
				Event:         event,
				Record:        record,
				BalanceBefore: result.BalanceBefore,
				BalanceAfter:  result.BalanceAfter,
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, payment.ErrAlreadyProcessed{}) {
			return nil, payment.ErrAlreadyProcessed{TxID: txID}
		}
		p.logger.Error("Payment confirmation failed, claim rolled back",
			"txid", txID,
			"customer_id", event.CustomerID,
			"error", err,
		)
		return nil, err
	}

	p.logger.Info("Payment confirmed",
		"txid", txID,
		"customer_id", event.CustomerID,
		"amount", event.Amount,
		"method", event.Method,
		"balance_after", confirmation.BalanceAfter,
	)

	return confirmation, nil
}

// stageConfirmationEvents writes the pix_payment_confirmed and
// recharge_completed notifications in the confirmation transaction
func (p *ConfirmationPipeline) stageConfirmationEvents(ctx context.Context, tx pgx.Tx, event *payment.Event, txID string, paidAt time.Time) error {
	payload := notification.PaymentConfirmedPayload{
		CustomerID:    event.CustomerID,
		TransactionID: txID,
		Amount:        event.Amount,
		PaymentMethod: event.Method,
		PaidAt:        paidAt,
	}

	outboxTx := p.outboxRepo.WithTx(tx)

	if event.Method == shared.PaymentMethodPix {
		pixEvent, err := notification.NewEvent(event.CustomerID, shared.NotificationPixPaymentConfirmed, payload)
		if err != nil {
			return fmt.Errorf("failed to build pix_payment_confirmed event: %w", err)
		}
		if err := outboxTx.Create(ctx, pixEvent); err != nil {
			return err
		}
	}

	completedEvent, err := notification.NewEvent(event.CustomerID, shared.NotificationRechargeCompleted, payload)
	if err != nil {
		return fmt.Errorf("failed to build recharge_completed event: %w", err)
	}
	return outboxTx.Create(ctx, completedEvent)
}
