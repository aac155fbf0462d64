// Package poller implements the polling fallback for payment confirmation.
// Webhook delivery is the primary path; the poller only sweeps events that
// stayed pending long enough that the webhook likely never arrived, plus
// charges that outlived their provider expiry.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/virtualnum-wallet-ledger/internal/config"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/provider"
	"github.com/virtualnum-wallet-ledger/internal/wallet/pipeline"
)

// ChargeChecker reads the provider's view of a charge
type ChargeChecker interface {
	GetCharge(ctx context.Context, txID string) (*provider.ChargeDetail, error)
}

// Confirmer settles a claimed payment into the wallet
type Confirmer interface {
	ConfirmPayment(ctx context.Context, txID string, reportedAmount int64, paidAt time.Time) (*pipeline.Confirmation, error)
}

// Poller periodically sweeps pending payment events
type Poller struct {
	paymentRepo   payment.Repository
	checker       ChargeChecker
	confirmer     Confirmer
	pool          *ants.Pool
	logger        *slog.Logger
	interval      time.Duration
	batchSize     int
	minPendingAge time.Duration
}

func NewPoller(
	cfg *config.PollerConfig,
	paymentRepo payment.Repository,
	checker ChargeChecker,
	confirmer Confirmer,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create poller worker pool: %w", err)
	}

	return &Poller{
		paymentRepo:   paymentRepo,
		checker:       checker,
		confirmer:     confirmer,
		pool:          pool,
		logger:        logger,
		interval:      cfg.Interval,
		batchSize:     cfg.BatchSize,
		minPendingAge: cfg.MinPendingAge,
	}, nil
}

// Start begins sweeping until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting payment poller",
		"interval", p.interval.String(),
		"batch_size", p.batchSize,
		"min_pending_age", p.minPendingAge.String(),
		"workers", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Payment poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				p.logger.Error("Error during payment poller sweep", "error", err)
			}
		}
	}
}

// Sweep processes one batch of stale pending events. Events are handled
// concurrently on the worker pool; the sweep returns when the batch is done.
func (p *Poller) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-p.minPendingAge)
	events, err := p.paymentRepo.ListPending(ctx, cutoff, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending payment events: %w", err)
	}

	if len(events) == 0 {
		p.logger.Debug("No stale pending payment events found.")
		return nil
	}

	p.logger.Info("Sweeping stale pending payment events", "count", len(events))

	var wg sync.WaitGroup
	for _, event := range events {
		event := event
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.processEvent(ctx, event)
		}); err != nil {
			wg.Done()
			p.logger.Error("Failed to submit payment event to worker pool",
				"txid", event.TxID, "error", err)
		}
	}
	wg.Wait()
	return nil
}

func (p *Poller) processEvent(ctx context.Context, event *payment.Event) {
	logger := p.logger.With("txid", event.TxID, "customer_id", event.CustomerID)

	if event.ExpiresAt != nil && time.Now().After(*event.ExpiresAt) {
		if err := p.paymentRepo.MarkTerminal(ctx, event.TxID, shared.PaymentStatusExpired); err != nil {
			logger.Error("Failed to expire stale payment event", "error", err)
			return
		}
		logger.Info("Expired stale payment event", "expired_at", event.ExpiresAt)
		return
	}

	// Only PIX charges can be checked against the provider; card sessions
	// are settled by their own webhook or swept on expiry above
	if event.Method != shared.PaymentMethodPix {
		return
	}

	detail, err := p.checker.GetCharge(ctx, event.TxID)
	if err != nil {
		logger.Error("Failed to check charge at provider", "error", err)
		return
	}

	if !detail.Paid() {
		logger.Debug("Charge still unpaid at provider", "provider_status", detail.Status)
		return
	}

	amount, err := pix.ParseAmount(detail.Valor.Original)
	if err != nil {
		logger.Error("Provider reported unparseable charge amount",
			"valor", detail.Valor.Original, "error", err)
		return
	}

	confirmation, err := p.confirmer.ConfirmPayment(ctx, event.TxID, amount, detail.PaidAt())
	if err != nil {
		if errors.Is(err, payment.ErrAlreadyProcessed{}) {
			// The webhook won the race; nothing left to do
			logger.Debug("Payment already settled by another delivery")
			return
		}
		logger.Error("Failed to confirm polled payment", "error", err)
		return
	}

	logger.Info("Confirmed payment via polling fallback",
		"amount", amount,
		"balance_after", confirmation.BalanceAfter,
	)
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down payment poller worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}
