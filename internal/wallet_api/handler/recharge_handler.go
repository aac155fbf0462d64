package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/service"
)

// RechargeHandler handles recharge checkout and history endpoints
type RechargeHandler struct {
	rechargeService service.RechargeService
	logger          *slog.Logger
}

// NewRechargeHandler creates a new recharge handler
func NewRechargeHandler(logger *slog.Logger, rechargeService service.RechargeService) *RechargeHandler {
	return &RechargeHandler{
		rechargeService: rechargeService,
		logger:          logger,
	}
}

// Create starts a recharge checkout for a customer
func (h *RechargeHandler) Create(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	var req CreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	initiation, err := h.rechargeService.InitiateRecharge(c.Request.Context(), id, req.Amount, shared.PaymentMethod(req.Method))
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		var inactive customer.ErrCustomerInactive
		if errors.As(err, &inactive) {
			RespondUnprocessable(c, "CUSTOMER_INACTIVE", "Customer account is deactivated")
			return
		}
		h.logger.Error("Failed to initiate recharge", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	resp := RechargeInitiationResponse{
		TxID:      initiation.TxID,
		Method:    string(initiation.Method),
		Amount:    initiation.Amount,
		CopyPaste: initiation.CopyPaste,
		ExpiresAt: initiation.ExpiresAt.Format(time.RFC3339),
	}
	if initiation.Method == shared.PaymentMethodPix {
		resp.QRCodeURL = fmt.Sprintf("/api/v1/recharges/%s/qrcode", initiation.TxID)
	}

	RespondCreated(c, resp)
}

// QRCode serves the charge's copy-paste code as a PNG image
func (h *RechargeHandler) QRCode(c *gin.Context) {
	txID := c.Param("txid")
	if txID == "" {
		RespondBadRequest(c, "Missing transaction ID")
		return
	}

	png, err := h.rechargeService.QRCode(c.Request.Context(), txID)
	if err != nil {
		var notFound payment.ErrEventNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Charge not found")
			return
		}
		if errors.Is(err, payment.ErrAlreadyProcessed{}) {
			RespondConflict(c, "Charge is no longer payable")
			return
		}
		h.logger.Error("Failed to render charge QR code", "txid", txID, "error", err)
		RespondInternalError(c)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GetByCustomerID retrieves a customer's completed recharges
func (h *RechargeHandler) GetByCustomerID(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	records, err := h.rechargeService.GetRecharges(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to get recharges", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RechargeResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, mapRechargeToResponse(record))
	}
	RespondOK(c, responses)
}

func mapRechargeToResponse(record *recharge.Record) RechargeResponse {
	return RechargeResponse{
		ID:            record.ID,
		CustomerID:    record.CustomerID,
		Amount:        record.Amount,
		PaymentMethod: string(record.PaymentMethod),
		Status:        string(record.Status),
		TransactionID: record.TransactionID,
		CompletedAt:   record.CompletedAt.Format(time.RFC3339),
	}
}
