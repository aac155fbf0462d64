package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) ProcessPixConfirmation(ctx context.Context, conf pix.Confirmation) error {
	args := m.Called(ctx, conf)
	return args.Error(0)
}

func (m *MockWebhookService) ProcessCardSession(ctx context.Context, sessionID, status string) error {
	args := m.Called(ctx, sessionID, status)
	return args.Error(0)
}

func TestWebhookHandler_Pix(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessPixConfirmation", mock.Anything, mock.MatchedBy(func(conf pix.Confirmation) bool {
			return conf.TxID == "tx-abc" && conf.Valor == "25.00"
		})).Return(nil)

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{
			"pix": []map[string]string{
				{"endToEndId": "E1234", "txid": "tx-abc", "valor": "25.00", "horario": "2026-03-14T12:30:00Z"},
			},
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["received"])
		mockService.AssertExpectations(t)
	})

	t.Run("MultipleConfirmationsSettledIndependently", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessPixConfirmation", mock.Anything, mock.MatchedBy(func(conf pix.Confirmation) bool {
			return conf.TxID == "tx-1"
		})).Return(payment.ErrAlreadyProcessed{TxID: "tx-1"})
		mockService.On("ProcessPixConfirmation", mock.Anything, mock.MatchedBy(func(conf pix.Confirmation) bool {
			return conf.TxID == "tx-2"
		})).Return(nil)

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{
			"pix": []map[string]string{
				{"txid": "tx-1", "valor": "10.00"},
				{"txid": "tx-2", "valor": "20.00"},
			},
		})

		// Redelivery of a settled event still answers 200
		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnknownTxidIsAcknowledged", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessPixConfirmation", mock.Anything, mock.Anything).
			Return(payment.ErrEventNotFound{TxID: "tx-ghost"})

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{
			"pix": []map[string]string{{"txid": "tx-ghost", "valor": "10.00"}},
		})

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("AmountMismatchIsRejected", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessPixConfirmation", mock.Anything, mock.Anything).
			Return(payment.ErrAmountMismatch{TxID: "tx-abc", Expected: 2500, Reported: 2400})

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{
			"pix": []map[string]string{{"txid": "tx-abc", "valor": "24.00"}},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "AMOUNT_MISMATCH", resp.Error.Code)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{"not_pix": true})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ProcessPixConfirmation", mock.Anything, mock.Anything)
	})

	t.Run("ProcessingFailure", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessPixConfirmation", mock.Anything, mock.Anything).
			Return(errors.New("connection refused"))

		router := setupTestRouter()
		router.POST("/webhooks/pix", h.Pix)

		rr := postJSON(t, router, "/webhooks/pix", map[string]interface{}{
			"pix": []map[string]string{{"txid": "tx-abc", "valor": "25.00"}},
		})

		// Non-2xx so the provider redelivers later
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestWebhookHandler_Card(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessCardSession", mock.Anything, "cs_def", "paid").Return(nil)

		router := setupTestRouter()
		router.POST("/webhooks/card", h.Card)

		rr := postJSON(t, router, "/webhooks/card", CardWebhookRequest{SessionID: "cs_def", Status: "paid"})

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "ok", data["status"])
	})

	t.Run("RedeliveryAnswersOK", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessCardSession", mock.Anything, "cs_def", "paid").
			Return(payment.ErrAlreadyProcessed{TxID: "cs_def"})

		router := setupTestRouter()
		router.POST("/webhooks/card", h.Card)

		rr := postJSON(t, router, "/webhooks/card", CardWebhookRequest{SessionID: "cs_def", Status: "paid"})

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "already_processed", data["status"])
	})

	t.Run("UnknownSession", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		mockService.On("ProcessCardSession", mock.Anything, "cs_missing", "paid").
			Return(payment.ErrEventNotFound{TxID: "cs_missing"})

		router := setupTestRouter()
		router.POST("/webhooks/card", h.Card)

		rr := postJSON(t, router, "/webhooks/card", CardWebhookRequest{SessionID: "cs_missing", Status: "paid"})

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MissingFields", func(t *testing.T) {
		mockService := new(MockWebhookService)
		h := NewWebhookHandler(testLogger(), mockService, nil)

		router := setupTestRouter()
		router.POST("/webhooks/card", h.Card)

		rr := postJSON(t, router, "/webhooks/card", map[string]string{"status": "paid"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ProcessCardSession", mock.Anything, mock.Anything, mock.Anything)
	})
}
