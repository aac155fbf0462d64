// Package provider implements the HTTP client for the EfiPay-compatible PIX
// API. Every call carries a bounded timeout so a slow provider can never
// stall a wallet lock or a polling sweep.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/config"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
)

// Charge statuses as reported by the provider
const (
	ChargeStatusActive    = "ATIVA"
	ChargeStatusConcluded = "CONCLUIDA"
	ChargeStatusRemoved   = "REMOVIDA_PELO_USUARIO_RECEBEDOR"
	ChargeStatusRemovedBy = "REMOVIDA_PELO_PSP"
)

// ChargeDetail is the provider's view of a charge, used by the polling
// fallback to detect payments whose webhook never arrived
type ChargeDetail struct {
	TxID          string `json:"txid"`
	Status        string `json:"status"`
	PixCopiaECola string `json:"pixCopiaECola"`
	Valor         struct {
		Original string `json:"original"`
	} `json:"valor"`
	Pix []struct {
		EndToEndID string `json:"endToEndId"`
		Horario    string `json:"horario"`
	} `json:"pix"`
}

// Paid reports whether the provider considers the charge settled
func (d *ChargeDetail) Paid() bool {
	return d.Status == ChargeStatusConcluded
}

// PaidAt returns the settlement time reported by the provider, falling back
// to the current time when the detail carries no usable timestamp
func (d *ChargeDetail) PaidAt() time.Time {
	if len(d.Pix) > 0 {
		if t, err := time.Parse(time.RFC3339, d.Pix[0].Horario); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// PixClient is an authenticated client for the PIX charge API
type PixClient struct {
	logger       *slog.Logger
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	pixKey       string
	chargeExpiry time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPixClient(logger *slog.Logger, cfg *config.ProviderConfig) *PixClient {
	return &PixClient{
		logger:       logger,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:      strings.TrimRight(cfg.PixBaseURL, "/"),
		clientID:     cfg.PixClientID,
		clientSecret: cfg.PixClientSecret,
		pixKey:       cfg.PixKey,
		chargeExpiry: cfg.ChargeExpiry,
	}
}

type createChargeRequest struct {
	Calendario struct {
		Expiracao int `json:"expiracao"`
	} `json:"calendario"`
	Valor struct {
		Original string `json:"original"`
	} `json:"valor"`
	Chave              string `json:"chave"`
	SolicitacaoPagador string `json:"solicitacaoPagador,omitempty"`
}

type createChargeResponse struct {
	TxID          string `json:"txid"`
	Status        string `json:"status"`
	PixCopiaECola string `json:"pixCopiaECola"`
}

// CreateCharge registers an immediate charge under the caller-chosen txid.
// The amount is in cents and rendered as the provider's decimal string.
func (c *PixClient) CreateCharge(ctx context.Context, txID string, amountCents int64, description string) (*pix.Charge, error) {
	expiry := int(c.chargeExpiry.Seconds())

	reqBody := createChargeRequest{Chave: c.pixKey, SolicitacaoPagador: description}
	reqBody.Calendario.Expiracao = expiry
	reqBody.Valor.Original = pix.FormatAmount(amountCents)

	var resp createChargeResponse
	if err := c.doJSON(ctx, http.MethodPut, "/v2/cob/"+url.PathEscape(txID), reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to create pix charge %s: %w", txID, err)
	}
	if resp.PixCopiaECola == "" {
		return nil, fmt.Errorf("provider returned charge %s without a copy-paste code", txID)
	}

	c.logger.Info("Created PIX charge", "txid", resp.TxID, "status", resp.Status, "amount", reqBody.Valor.Original)

	return &pix.Charge{
		TxID:      resp.TxID,
		CopyPaste: resp.PixCopiaECola,
		ExpiresIn: expiry,
	}, nil
}

// GetCharge fetches the current provider state of a charge
func (c *PixClient) GetCharge(ctx context.Context, txID string) (*ChargeDetail, error) {
	var detail ChargeDetail
	if err := c.doJSON(ctx, http.MethodGet, "/v2/cob/"+url.PathEscape(txID), nil, &detail); err != nil {
		return nil, fmt.Errorf("failed to get pix charge %s: %w", txID, err)
	}
	return &detail, nil
}

func (c *PixClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider responded %d: %s", resp.StatusCode, providerErrorMessage(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

// providerErrorMessage extracts the human-readable message the provider puts
// in its error bodies, falling back to the raw body
func providerErrorMessage(raw []byte) string {
	var parsed struct {
		Mensagem string `json:"mensagem"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Mensagem != "" {
			return parsed.Mensagem
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(raw)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached OAuth token, refreshing it shortly before
// expiry. Refreshes are serialized; concurrent poller workers share one token.
func (c *PixClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(`{"grant_type":"client_credentials"}`))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to obtain provider token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("provider token endpoint responded %d: %s", resp.StatusCode, providerErrorMessage(raw))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode provider token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("provider token response carried no access_token")
	}

	c.token = tok.AccessToken
	// Refresh one minute early so in-flight requests never race expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}
