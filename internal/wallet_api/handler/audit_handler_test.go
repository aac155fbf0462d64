package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	mongodata "github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/reconcile"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) AuditCustomer(ctx context.Context, customerID int64) (*reconcile.Report, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Report), args.Error(1)
}

func (m *MockAuditService) ListDivergent(ctx context.Context, minSeverity shared.Severity) ([]*reconcile.Report, error) {
	args := m.Called(ctx, minSeverity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconcile.Report), args.Error(1)
}

func (m *MockAuditService) ReportHistory(ctx context.Context, limit int64) ([]*mongodata.AuditReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*mongodata.AuditReport), args.Error(1)
}

func TestAuditHandler_AuditCustomer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		mockService.On("AuditCustomer", mock.Anything, int64(7)).Return(&reconcile.Report{
			CustomerID: 7,
			Expected:   1500,
			Actual:     1450,
			Diff:       -50,
			Severity:   shared.SeverityLow,
			AuditedAt:  time.Now().UTC(),
		}, nil)

		router := setupTestRouter()
		router.GET("/admin/customers/:id/audit", h.AuditCustomer)

		req, _ := http.NewRequest(http.MethodGet, "/admin/customers/7/audit", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(-50), data["diff"])
		assert.Equal(t, "low", data["severity"])
	})

	t.Run("UnknownCustomer", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		mockService.On("AuditCustomer", mock.Anything, int64(99)).
			Return(nil, customer.ErrCustomerNotFound{CustomerID: 99})

		router := setupTestRouter()
		router.GET("/admin/customers/:id/audit", h.AuditCustomer)

		req, _ := http.NewRequest(http.MethodGet, "/admin/customers/99/audit", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuditHandler_ListDivergent(t *testing.T) {
	t.Run("DefaultsToLowSeverity", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		reports := []*reconcile.Report{
			{CustomerID: 3, Expected: 1000, Actual: 2500, Diff: 1500, Severity: shared.SeverityCritical, AuditedAt: time.Now().UTC()},
		}
		mockService.On("ListDivergent", mock.Anything, shared.SeverityLow).Return(reports, nil)

		router := setupTestRouter()
		router.GET("/admin/audit/divergent", h.ListDivergent)

		req, _ := http.NewRequest(http.MethodGet, "/admin/audit/divergent", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		items := resp.Data.([]interface{})
		require.Len(t, items, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("ExplicitSeverity", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		mockService.On("ListDivergent", mock.Anything, shared.SeverityCritical).Return([]*reconcile.Report{}, nil)

		router := setupTestRouter()
		router.GET("/admin/audit/divergent", h.ListDivergent)

		req, _ := http.NewRequest(http.MethodGet, "/admin/audit/divergent?severity=critical", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidSeverity", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		router := setupTestRouter()
		router.GET("/admin/audit/divergent", h.ListDivergent)

		req, _ := http.NewRequest(http.MethodGet, "/admin/audit/divergent?severity=catastrophic", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ListDivergent", mock.Anything, mock.Anything)
	})
}

func TestAuditHandler_ReportHistory(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		reports := []*mongodata.AuditReport{
			{CustomerID: 7, Expected: 1500, Actual: 1450, Diff: -50, Severity: shared.SeverityLow, AuditedAt: time.Now().UTC()},
			{CustomerID: 3, Expected: 1000, Actual: 2500, Diff: 1500, Severity: shared.SeverityCritical, AuditedAt: time.Now().UTC().Add(-time.Hour)},
		}
		mockService.On("ReportHistory", mock.Anything, int64(20)).Return(reports, nil)

		router := setupTestRouter()
		router.GET("/admin/audit/reports", h.ReportHistory)

		req, _ := http.NewRequest(http.MethodGet, "/admin/audit/reports", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		items := resp.Data.([]interface{})
		require.Len(t, items, 2)
		first := items[0].(map[string]interface{})
		assert.Equal(t, float64(7), first["customer_id"])
		mockService.AssertExpectations(t)
	})

	t.Run("ExplicitLimit", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		mockService.On("ReportHistory", mock.Anything, int64(5)).Return([]*mongodata.AuditReport{}, nil)

		router := setupTestRouter()
		router.GET("/admin/audit/reports", h.ReportHistory)

		req, _ := http.NewRequest(http.MethodGet, "/admin/audit/reports?limit=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		mockService := new(MockAuditService)
		h := NewAuditHandler(testLogger(), mockService)

		router := setupTestRouter()
		router.GET("/admin/audit/reports", h.ReportHistory)

		for _, q := range []string{"limit=0", "limit=-1", "limit=500", "limit=abc"} {
			req, _ := http.NewRequest(http.MethodGet, "/admin/audit/reports?"+q, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		}
		mockService.AssertNotCalled(t, "ReportHistory", mock.Anything, mock.Anything)
	})
}
