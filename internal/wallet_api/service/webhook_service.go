package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/pipeline"
)

// Confirmer settles a claimed payment into the wallet
type Confirmer interface {
	ConfirmPayment(ctx context.Context, txID string, reportedAmount int64, paidAt time.Time) (*pipeline.Confirmation, error)
}

// WebhookServiceImpl implements the WebhookService interface
type WebhookServiceImpl struct {
	confirmer   Confirmer
	paymentRepo payment.Repository
	logger      *slog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(confirmer Confirmer, paymentRepo payment.Repository, logger *slog.Logger) WebhookService {
	return &WebhookServiceImpl{
		confirmer:   confirmer,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// ProcessPixConfirmation credits one confirmed PIX transfer. The reported
// amount is the provider's decimal string, parsed to cents without floats.
func (s *WebhookServiceImpl) ProcessPixConfirmation(ctx context.Context, conf pix.Confirmation) error {
	amount, err := pix.ParseAmount(conf.Valor)
	if err != nil {
		return fmt.Errorf("unparseable amount %q for txid %s: %w", conf.Valor, conf.TxID, err)
	}

	paidAt := time.Now().UTC()
	if conf.Horario != "" {
		if t, parseErr := time.Parse(time.RFC3339, conf.Horario); parseErr == nil {
			paidAt = t
		}
	}

	confirmation, err := s.confirmer.ConfirmPayment(ctx, conf.TxID, amount, paidAt)
	if err != nil {
		return err
	}

	s.logger.Info("Settled PIX webhook confirmation",
		"txid", conf.TxID,
		"end_to_end_id", conf.EndToEndID,
		"amount", amount,
		"balance_after", confirmation.BalanceAfter,
	)
	return nil
}

// ProcessCardSession settles a card checkout session by its provider status.
// The card provider reports no amount, so the session's own recorded amount
// is what gets credited.
func (s *WebhookServiceImpl) ProcessCardSession(ctx context.Context, sessionID, status string) error {
	switch status {
	case "paid", "complete", "completed":
		event, err := s.paymentRepo.GetByTxID(ctx, sessionID)
		if err != nil {
			return err
		}

		confirmation, err := s.confirmer.ConfirmPayment(ctx, sessionID, event.Amount, time.Now().UTC())
		if err != nil {
			return err
		}

		s.logger.Info("Settled card session",
			"session_id", sessionID,
			"amount", event.Amount,
			"balance_after", confirmation.BalanceAfter,
		)
		return nil
	case "failed", "canceled":
		return s.paymentRepo.MarkTerminal(ctx, sessionID, shared.PaymentStatusFailed)
	case "expired":
		return s.paymentRepo.MarkTerminal(ctx, sessionID, shared.PaymentStatusExpired)
	default:
		return fmt.Errorf("unknown card session status %q for session %s", status, sessionID)
	}
}
