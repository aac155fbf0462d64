package handler

// CreateCustomerRequest represents a request to register a new customer
type CreateCustomerRequest struct {
	PIN            int    `json:"pin" binding:"required,gt=0"`
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"omitempty,email"`
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        int64  `json:"id"`
	PIN       int    `json:"pin"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Balance   int64  `json:"balance"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// WalletOperationRequest represents a purchase or refund request
type WalletOperationRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// AdjustmentRequest represents an admin balance correction. Amount is signed:
// positive credits, negative debits.
type AdjustmentRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description,omitempty"`
}

// WalletOperationResponse represents the outcome of a balance mutation
type WalletOperationResponse struct {
	CustomerID    int64  `json:"customer_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Description   string `json:"description,omitempty"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID            int64  `json:"id"`
	CustomerID    int64  `json:"customer_id"`
	Amount        int64  `json:"amount"`
	Type          string `json:"type"`
	Origin        string `json:"origin"`
	Description   string `json:"description,omitempty"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	CreatedAt     string `json:"created_at"`
}

// CreateRechargeRequest represents a request to start a recharge checkout
type CreateRechargeRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required,oneof=pix card"`
}

// RechargeInitiationResponse represents a freshly created charge
type RechargeInitiationResponse struct {
	TxID      string `json:"txid"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
	CopyPaste string `json:"copy_paste,omitempty"`
	QRCodeURL string `json:"qrcode_url,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

// RechargeResponse represents a completed recharge in API responses
type RechargeResponse struct {
	ID            int64  `json:"id"`
	CustomerID    int64  `json:"customer_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	CompletedAt   string `json:"completed_at"`
}

// CardWebhookRequest is the card provider's session status callback
type CardWebhookRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// AuditReportResponse represents one reconciliation report
type AuditReportResponse struct {
	CustomerID int64  `json:"customer_id"`
	Expected   int64  `json:"expected"`
	Actual     int64  `json:"actual"`
	Diff       int64  `json:"diff"`
	Severity   string `json:"severity"`
	AuditedAt  string `json:"audited_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
