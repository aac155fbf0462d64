package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/provider"
)

// PixProvider is the slice of the provider client the recharge flow needs
type PixProvider interface {
	CreateCharge(ctx context.Context, txID string, amountCents int64, description string) (*pix.Charge, error)
	GetCharge(ctx context.Context, txID string) (*provider.ChargeDetail, error)
}

// RechargeServiceImpl implements the RechargeService interface
type RechargeServiceImpl struct {
	customerRepo customer.Repository
	paymentRepo  payment.Repository
	rechargeRepo recharge.Repository
	pixProvider  PixProvider
	chargeExpiry time.Duration
	logger       *slog.Logger
}

// NewRechargeService creates a new recharge service
func NewRechargeService(
	customerRepo customer.Repository,
	paymentRepo payment.Repository,
	rechargeRepo recharge.Repository,
	pixProvider PixProvider,
	chargeExpiry time.Duration,
	logger *slog.Logger,
) RechargeService {
	return &RechargeServiceImpl{
		customerRepo: customerRepo,
		paymentRepo:  paymentRepo,
		rechargeRepo: rechargeRepo,
		pixProvider:  pixProvider,
		chargeExpiry: chargeExpiry,
		logger:       logger,
	}
}

// InitiateRecharge creates a provider charge and records the pending payment
// event the confirmation pipeline will later settle. The pending event is
// written after the provider accepts the charge; an event without a provider
// charge could never be paid, while a provider charge without an event is
// caught by amount-mismatch checks if its webhook ever arrives.
func (s *RechargeServiceImpl) InitiateRecharge(ctx context.Context, customerID, amount int64, method shared.PaymentMethod) (*RechargeInitiation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("recharge amount must be positive, got %d", amount)
	}

	c, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, customer.ErrCustomerInactive{CustomerID: customerID}
	}

	expiresAt := time.Now().Add(s.chargeExpiry)
	initiation := &RechargeInitiation{
		Method:    method,
		Amount:    amount,
		ExpiresAt: expiresAt,
	}

	switch method {
	case shared.PaymentMethodPix:
		// Provider txids must be alphanumeric; a dashless UUID fits
		txID := strings.ReplaceAll(uuid.New().String(), "-", "")
		charge, err := s.pixProvider.CreateCharge(ctx, txID, amount, fmt.Sprintf("Recarga de saldo - cliente %d", c.PIN))
		if err != nil {
			return nil, err
		}
		initiation.TxID = charge.TxID
		initiation.CopyPaste = charge.CopyPaste
	case shared.PaymentMethodCard:
		// Card checkout sessions are created by the storefront against its
		// card provider; this side only tracks the pending event by session id
		initiation.TxID = "cs_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	default:
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}

	event := payment.NewEvent(initiation.TxID, customerID, amount, method, &expiresAt)
	if err := s.paymentRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("Initiated recharge",
		"customer_id", customerID,
		"txid", initiation.TxID,
		"method", string(method),
		"amount", amount,
	)
	return initiation, nil
}

// QRCode renders the charge's copy-paste code as a PNG image. The copy-paste
// string is not stored locally; it is re-read from the provider on demand.
func (s *RechargeServiceImpl) QRCode(ctx context.Context, txID string) ([]byte, error) {
	event, err := s.paymentRepo.GetByTxID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if event.Method != shared.PaymentMethodPix {
		return nil, fmt.Errorf("payment event %s is not a PIX charge", txID)
	}
	if event.Status.IsTerminal() {
		return nil, payment.ErrAlreadyProcessed{TxID: txID}
	}

	detail, err := s.pixProvider.GetCharge(ctx, txID)
	if err != nil {
		return nil, err
	}
	if detail.PixCopiaECola == "" {
		return nil, fmt.Errorf("provider returned charge %s without a copy-paste code", txID)
	}

	png, err := qrcode.Encode(detail.PixCopiaECola, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code for charge %s: %w", txID, err)
	}
	return png, nil
}

// GetRecharges retrieves a customer's completed recharges, newest first
func (s *RechargeServiceImpl) GetRecharges(ctx context.Context, customerID int64, page, perPage int) ([]*recharge.Record, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	offset := (page - 1) * perPage
	return s.rechargeRepo.GetByCustomerID(ctx, customerID, perPage, offset)
}
