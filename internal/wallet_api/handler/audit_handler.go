package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/reconcile"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/service"
)

// AuditHandler handles admin reconciliation endpoints
type AuditHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// AuditCustomer reconciles one customer's balance against their ledger
func (h *AuditHandler) AuditCustomer(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	report, err := h.auditService.AuditCustomer(c.Request.Context(), id)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to audit customer", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapReportToResponse(report))
}

// ListDivergent audits every customer and returns the divergent ones
func (h *AuditHandler) ListDivergent(c *gin.Context) {
	minSeverity := shared.Severity(c.DefaultQuery("severity", string(shared.SeverityLow)))
	switch minSeverity {
	case shared.SeverityLow, shared.SeverityMedium, shared.SeverityCritical:
	default:
		RespondBadRequest(c, "Invalid severity: must be low, medium or critical")
		return
	}

	reports, err := h.auditService.ListDivergent(c.Request.Context(), minSeverity)
	if err != nil {
		h.logger.Error("Failed to list divergent customers", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AuditReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, mapReportToResponse(report))
	}
	RespondOK(c, responses)
}

// ReportHistory returns recently archived audit reports, newest first
func (h *AuditHandler) ReportHistory(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		RespondBadRequest(c, "Invalid limit: must be between 1 and 100")
		return
	}

	reports, err := h.auditService.ReportHistory(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read audit report history", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AuditReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, AuditReportResponse{
			CustomerID: report.CustomerID,
			Expected:   report.Expected,
			Actual:     report.Actual,
			Diff:       report.Diff,
			Severity:   string(report.Severity),
			AuditedAt:  report.AuditedAt.Format(time.RFC3339),
		})
	}
	RespondOK(c, responses)
}

func mapReportToResponse(report *reconcile.Report) AuditReportResponse {
	return AuditReportResponse{
		CustomerID: report.CustomerID,
		Expected:   report.Expected,
		Actual:     report.Actual,
		Diff:       report.Diff,
		Severity:   string(report.Severity),
		AuditedAt:  report.AuditedAt.Format(time.RFC3339),
	}
}
