package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/service"
)

// CustomerHandler handles HTTP requests for customer and wallet operations
type CustomerHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(logger *slog.Logger, walletService service.WalletService) *CustomerHandler {
	return &CustomerHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Create handles registration of a new customer
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cust, err := h.walletService.CreateCustomer(c.Request.Context(), req.PIN, req.Name, req.Email, req.InitialBalance)
	if err != nil {
		var duplicatePIN customer.ErrDuplicatePIN
		if errors.As(err, &duplicatePIN) {
			h.logger.Warn("Attempt to create customer with duplicate PIN", "pin", duplicatePIN.PIN)
			RespondConflict(c, "Customer with this PIN already exists")
			return
		}
		if errors.Is(err, customer.ErrEmptyName) || errors.Is(err, customer.ErrInvalidPIN) || errors.Is(err, customer.ErrInvalidBalance) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create customer", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapCustomerToResponse(cust))
}

// GetByID retrieves a customer and their current balance
func (h *CustomerHandler) GetByID(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	cust, err := h.walletService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to get customer", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapCustomerToResponse(cust))
}

// GetByPIN resolves the PIN customers identify themselves with at checkout
func (h *CustomerHandler) GetByPIN(c *gin.Context) {
	pin, err := strconv.Atoi(c.Query("pin"))
	if err != nil || pin <= 0 {
		RespondBadRequest(c, "Invalid or missing pin query parameter")
		return
	}

	cust, err := h.walletService.GetCustomerByPIN(c.Request.Context(), pin)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to get customer by PIN", "pin", pin, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapCustomerToResponse(cust))
}

// Deactivate blocks further operations on the customer's wallet
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	if err := h.walletService.DeactivateCustomer(c.Request.Context(), id); err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to deactivate customer", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"customer_id": id, "active": false})
}

// Purchase debits the customer for a number purchase
func (h *CustomerHandler) Purchase(c *gin.Context) {
	h.applyOperation(c, func(customerID int64, req WalletOperationRequest) (*mutator.Result, error) {
		return h.walletService.Purchase(c.Request.Context(), customerID, req.Amount, req.Description)
	})
}

// Refund credits a previously debited amount back to the customer
func (h *CustomerHandler) Refund(c *gin.Context) {
	h.applyOperation(c, func(customerID int64, req WalletOperationRequest) (*mutator.Result, error) {
		return h.walletService.Refund(c.Request.Context(), customerID, req.Amount, req.Description)
	})
}

// Adjust applies a signed admin correction to the balance
func (h *CustomerHandler) Adjust(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.walletService.Adjust(c.Request.Context(), id, req.Amount, req.Description)
	if err != nil {
		h.respondOperationError(c, id, err)
		return
	}

	RespondOK(c, mapResultToResponse(result))
}

// applyOperation binds a purchase/refund body and maps the outcome
func (h *CustomerHandler) applyOperation(c *gin.Context, op func(customerID int64, req WalletOperationRequest) (*mutator.Result, error)) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	var req WalletOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := op(id, req)
	if err != nil {
		h.respondOperationError(c, id, err)
		return
	}

	RespondOK(c, mapResultToResponse(result))
}

func (h *CustomerHandler) respondOperationError(c *gin.Context, customerID int64, err error) {
	var notFound customer.ErrCustomerNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Customer not found")
		return
	}
	var insufficient customer.ErrInsufficientBalance
	if errors.As(err, &insufficient) {
		h.logger.Warn("Rejected operation for insufficient balance",
			"customer_id", insufficient.CustomerID,
			"balance", insufficient.Balance,
			"requested", insufficient.Requested,
		)
		RespondUnprocessable(c, "INSUFFICIENT_BALANCE", "Balance cannot cover the requested amount")
		return
	}
	var inactive customer.ErrCustomerInactive
	if errors.As(err, &inactive) {
		RespondUnprocessable(c, "CUSTOMER_INACTIVE", "Customer account is deactivated")
		return
	}
	h.logger.Error("Failed to apply wallet operation", "customer_id", customerID, "error", err)
	RespondInternalError(c)
}

// GetTransactions retrieves a customer's paginated statement
func (h *CustomerHandler) GetTransactions(c *gin.Context) {
	id, ok := customerIDParam(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.walletService.GetTransactions(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to get transactions", "customer_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// customerIDParam parses the :id path parameter, responding 400 on garbage
func customerIDParam(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid customer ID")
		return 0, false
	}
	return id, true
}

// mapCustomerToResponse maps a customer entity to a customer response DTO
func mapCustomerToResponse(cust *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        cust.ID,
		PIN:       cust.PIN,
		Name:      cust.Name,
		Email:     cust.Email,
		Balance:   cust.Balance,
		Active:    cust.Active,
		CreatedAt: cust.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cust.UpdatedAt.Format(time.RFC3339),
	}
}

func mapResultToResponse(result *mutator.Result) WalletOperationResponse {
	return WalletOperationResponse{
		CustomerID:    result.Entry.CustomerID,
		Type:          string(result.Entry.Type),
		Amount:        result.Entry.Amount,
		BalanceBefore: result.BalanceBefore,
		BalanceAfter:  result.BalanceAfter,
		Description:   result.Entry.Description,
	}
}

func mapEntryToResponse(entry *ledger.Entry) TransactionResponse {
	return TransactionResponse{
		ID:            entry.ID,
		CustomerID:    entry.CustomerID,
		Amount:        entry.Amount,
		Type:          string(entry.Type),
		Origin:        string(entry.Origin),
		Description:   entry.Description,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
}
