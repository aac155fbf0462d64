// Package pix holds the provider-facing PIX wire types and money parsing.
// The provider delivers confirmations as decimal strings ("12.34"); amounts
// are converted to integer cents without ever passing through a float.
package pix

// WebhookPayload is the body the PIX provider POSTs on payment confirmation.
// A single delivery can carry multiple confirmations.
type WebhookPayload struct {
	Pix []Confirmation `json:"pix" binding:"required"`
}

// Confirmation is one confirmed PIX transfer inside a webhook delivery
type Confirmation struct {
	EndToEndID  string `json:"endToEndId"`
	TxID        string `json:"txid" binding:"required"`
	Valor       string `json:"valor" binding:"required"` // Decimal string, e.g. "1.00"
	Horario     string `json:"horario"`                  // RFC3339 payment time
	InfoPagador string `json:"infoPagador"`
}

// Charge is a PIX charge created at the provider for a recharge. CopyPaste is
// the "copia e cola" EMV string a customer scans or pastes to pay.
type Charge struct {
	TxID      string
	CopyPaste string
	ExpiresIn int // Seconds until the charge expires at the provider
}
