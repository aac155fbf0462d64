package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/middleware"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/service"
)

// WebhookHandler handles payment provider callbacks. Providers retry
// non-2xx responses, so anything already settled answers 200: a redelivery
// is their problem solved, not an error.
type WebhookHandler struct {
	webhookService service.WebhookService
	archive        *mongo.AuditArchive // Nil disables raw archival
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService, archive *mongo.AuditArchive) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		archive:        archive,
		logger:         logger,
	}
}

// Pix handles the PIX provider's payment confirmation callback. One delivery
// can carry several confirmations; each is settled independently so a bad
// entry never blocks the others.
func (h *WebhookHandler) Pix(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondBadRequest(c, "Unreadable request body")
		return
	}
	h.archiveRaw(c, "pix", body)

	var payload pix.WebhookPayload
	if err := bindRawJSON(c, body, &payload); err != nil {
		h.logger.Error("Invalid PIX webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}

	for _, conf := range payload.Pix {
		if err := h.webhookService.ProcessPixConfirmation(c.Request.Context(), conf); err != nil {
			if errors.Is(err, payment.ErrAlreadyProcessed{}) {
				h.logger.Info("PIX webhook redelivery for settled event", "txid", conf.TxID)
				continue
			}
			var notFound payment.ErrEventNotFound
			if errors.As(err, &notFound) {
				// A charge this service never issued; acknowledged so the
				// provider stops retrying, archived above for forensics
				h.logger.Warn("PIX webhook for unknown txid", "txid", conf.TxID)
				continue
			}
			var mismatch payment.ErrAmountMismatch
			if errors.As(err, &mismatch) {
				h.logger.Error("PIX webhook amount mismatch",
					"txid", mismatch.TxID,
					"expected", mismatch.Expected,
					"reported", mismatch.Reported,
				)
				RespondUnprocessable(c, "AMOUNT_MISMATCH", "Reported amount does not match the charge")
				return
			}
			h.logger.Error("Failed to process PIX confirmation", "txid", conf.TxID, "error", err)
			RespondInternalError(c)
			return
		}
	}

	RespondOK(c, gin.H{"received": len(payload.Pix)})
}

// Card handles the card provider's checkout session callback
func (h *WebhookHandler) Card(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondBadRequest(c, "Unreadable request body")
		return
	}
	h.archiveRaw(c, "card", body)

	var req CardWebhookRequest
	if err := bindRawJSON(c, body, &req); err != nil {
		h.logger.Error("Invalid card webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}

	if err := h.webhookService.ProcessCardSession(c.Request.Context(), req.SessionID, req.Status); err != nil {
		if errors.Is(err, payment.ErrAlreadyProcessed{}) {
			h.logger.Info("Card webhook redelivery for settled session", "session_id", req.SessionID)
			RespondOK(c, gin.H{"status": "already_processed"})
			return
		}
		var notFound payment.ErrEventNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Unknown session")
			return
		}
		h.logger.Error("Failed to process card session", "session_id", req.SessionID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"status": "ok"})
}

// archiveRaw stores the raw webhook body for manual replay. Best-effort: an
// archive failure never blocks the provider's 2xx.
func (h *WebhookHandler) archiveRaw(c *gin.Context, providerName string, body []byte) {
	if h.archive == nil {
		return
	}
	delivery := &mongo.WebhookDelivery{
		Provider:      providerName,
		CorrelationID: middleware.GetCorrelationID(c),
		Body:          body,
		ReceivedAt:    time.Now().UTC(),
	}
	if err := h.archive.ArchiveWebhook(c.Request.Context(), delivery); err != nil {
		h.logger.Warn("Failed to archive raw webhook", "provider", providerName, "error", err)
	}
}

// bindRawJSON validates an already-read body against gin's binding tags
func bindRawJSON(c *gin.Context, body []byte, obj interface{}) error {
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return c.ShouldBindJSON(obj)
}
