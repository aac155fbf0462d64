package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/payment"
	"github.com/virtualnum-wallet-ledger/internal/domain/pix"
	"github.com/virtualnum-wallet-ledger/internal/domain/recharge"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/provider"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, event *payment.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByTxID(ctx context.Context, txID string) (*payment.Event, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

func (m *MockPaymentRepository) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Event, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Event), args.Error(1)
}

func (m *MockPaymentRepository) Claim(ctx context.Context, txID string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, txID, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) MarkTerminal(ctx context.Context, txID string, status shared.PaymentStatus) error {
	args := m.Called(ctx, txID, status)
	return args.Error(0)
}

func (m *MockPaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	m.Called(tx)
	return m
}

type MockRechargeRepository struct {
	mock.Mock
}

func (m *MockRechargeRepository) Create(ctx context.Context, record *recharge.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRechargeRepository) GetByTransactionID(ctx context.Context, transactionID string) (*recharge.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recharge.Record), args.Error(1)
}

func (m *MockRechargeRepository) GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*recharge.Record, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recharge.Record), args.Error(1)
}

func (m *MockRechargeRepository) WithTx(tx pgx.Tx) recharge.Repository {
	m.Called(tx)
	return m
}

type MockPixProvider struct {
	mock.Mock
}

func (m *MockPixProvider) CreateCharge(ctx context.Context, txID string, amountCents int64, description string) (*pix.Charge, error) {
	args := m.Called(ctx, txID, amountCents, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pix.Charge), args.Error(1)
}

func (m *MockPixProvider) GetCharge(ctx context.Context, txID string) (*provider.ChargeDetail, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ChargeDetail), args.Error(1)
}

type rechargeFixture struct {
	service      RechargeService
	customerRepo *MockCustomerRepository
	paymentRepo  *MockPaymentRepository
	rechargeRepo *MockRechargeRepository
	pixProvider  *MockPixProvider
}

func newRechargeFixture() *rechargeFixture {
	f := &rechargeFixture{
		customerRepo: new(MockCustomerRepository),
		paymentRepo:  new(MockPaymentRepository),
		rechargeRepo: new(MockRechargeRepository),
		pixProvider:  new(MockPixProvider),
	}
	f.service = NewRechargeService(f.customerRepo, f.paymentRepo, f.rechargeRepo, f.pixProvider, time.Hour, testLogger())
	return f
}

func activeCustomer() *customer.Customer {
	return &customer.Customer{ID: 7, PIN: 1042, Name: "Maria Silva", Balance: 500, Active: true}
}

func TestRechargeService_InitiateRecharge(t *testing.T) {
	ctx := context.Background()

	t.Run("pix recharge creates a provider charge and a pending event", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(7)).Return(activeCustomer(), nil)
		f.pixProvider.On("CreateCharge", ctx, mock.AnythingOfType("string"), int64(2500), "Recarga de saldo - cliente 1042").
			Return(&pix.Charge{TxID: "generated", CopyPaste: "00020126...", ExpiresIn: 3600}, nil).
			Run(func(args mock.Arguments) {
				txID := args.String(1)
				assert.Len(t, txID, 32)
				assert.NotContains(t, txID, "-")
			})
		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(e *payment.Event) bool {
			return e.CustomerID == 7 && e.Amount == 2500 &&
				e.Method == shared.PaymentMethodPix && e.Status == shared.PaymentStatusPending &&
				e.ExpiresAt != nil
		})).Return(nil)

		initiation, err := f.service.InitiateRecharge(ctx, 7, 2500, shared.PaymentMethodPix)

		assert.NoError(t, err)
		require.NotNil(t, initiation)
		assert.Equal(t, shared.PaymentMethodPix, initiation.Method)
		assert.Equal(t, "00020126...", initiation.CopyPaste)
		assert.False(t, initiation.ExpiresAt.IsZero())
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("card recharge tracks a session id without a provider call", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(7)).Return(activeCustomer(), nil)
		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(e *payment.Event) bool {
			return e.Method == shared.PaymentMethodCard && len(e.TxID) > 3 && e.TxID[:3] == "cs_"
		})).Return(nil)

		initiation, err := f.service.InitiateRecharge(ctx, 7, 2500, shared.PaymentMethodCard)

		assert.NoError(t, err)
		require.NotNil(t, initiation)
		assert.Empty(t, initiation.CopyPaste)
		f.pixProvider.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		f := newRechargeFixture()

		_, err := f.service.InitiateRecharge(ctx, 7, 0, shared.PaymentMethodPix)
		assert.Error(t, err)
		f.customerRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("inactive customer", func(t *testing.T) {
		f := newRechargeFixture()

		c := activeCustomer()
		c.Active = false
		f.customerRepo.On("GetByID", ctx, int64(7)).Return(c, nil)

		_, err := f.service.InitiateRecharge(ctx, 7, 2500, shared.PaymentMethodPix)
		var inactive customer.ErrCustomerInactive
		assert.ErrorAs(t, err, &inactive)
		f.pixProvider.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider failure leaves no pending event", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(7)).Return(activeCustomer(), nil)
		f.pixProvider.On("CreateCharge", ctx, mock.Anything, int64(2500), mock.Anything).
			Return(nil, errors.New("provider unavailable"))

		_, err := f.service.InitiateRecharge(ctx, 7, 2500, shared.PaymentMethodPix)
		assert.Error(t, err)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unsupported method", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(7)).Return(activeCustomer(), nil)

		_, err := f.service.InitiateRecharge(ctx, 7, 2500, shared.PaymentMethod("boleto"))
		assert.Error(t, err)
	})
}

func TestRechargeService_QRCode(t *testing.T) {
	ctx := context.Background()

	t.Run("renders the provider copy-paste code as png", func(t *testing.T) {
		f := newRechargeFixture()

		f.paymentRepo.On("GetByTxID", ctx, "tx-abc").Return(&payment.Event{
			TxID: "tx-abc", CustomerID: 7, Amount: 2500,
			Method: shared.PaymentMethodPix, Status: shared.PaymentStatusPending,
		}, nil)
		f.pixProvider.On("GetCharge", ctx, "tx-abc").Return(&provider.ChargeDetail{
			TxID:          "tx-abc",
			Status:        provider.ChargeStatusActive,
			PixCopiaECola: "00020126580014br.gov.bcb.pix...",
		}, nil)

		png, err := f.service.QRCode(ctx, "tx-abc")

		assert.NoError(t, err)
		require.NotEmpty(t, png)
		// PNG magic bytes
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
	})

	t.Run("card sessions have no qr code", func(t *testing.T) {
		f := newRechargeFixture()

		f.paymentRepo.On("GetByTxID", ctx, "cs_def").Return(&payment.Event{
			TxID: "cs_def", Method: shared.PaymentMethodCard, Status: shared.PaymentStatusPending,
		}, nil)

		_, err := f.service.QRCode(ctx, "cs_def")
		assert.Error(t, err)
		f.pixProvider.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
	})

	t.Run("settled charge is no longer payable", func(t *testing.T) {
		f := newRechargeFixture()

		f.paymentRepo.On("GetByTxID", ctx, "tx-abc").Return(&payment.Event{
			TxID: "tx-abc", Method: shared.PaymentMethodPix, Status: shared.PaymentStatusPaid,
		}, nil)

		_, err := f.service.QRCode(ctx, "tx-abc")
		assert.ErrorIs(t, err, payment.ErrAlreadyProcessed{TxID: "tx-abc"})
	})

	t.Run("unknown txid", func(t *testing.T) {
		f := newRechargeFixture()

		f.paymentRepo.On("GetByTxID", ctx, "tx-missing").Return(nil, payment.ErrEventNotFound{TxID: "tx-missing"})

		_, err := f.service.QRCode(ctx, "tx-missing")
		assert.ErrorIs(t, err, payment.ErrEventNotFound{})
	})

	t.Run("charge without copy-paste code", func(t *testing.T) {
		f := newRechargeFixture()

		f.paymentRepo.On("GetByTxID", ctx, "tx-abc").Return(&payment.Event{
			TxID: "tx-abc", Method: shared.PaymentMethodPix, Status: shared.PaymentStatusPending,
		}, nil)
		f.pixProvider.On("GetCharge", ctx, "tx-abc").Return(&provider.ChargeDetail{TxID: "tx-abc"}, nil)

		_, err := f.service.QRCode(ctx, "tx-abc")
		assert.Error(t, err)
	})
}

func TestRechargeService_GetRecharges(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the customer's recharges", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(7)).Return(activeCustomer(), nil)
		records := []*recharge.Record{{ID: 2, TransactionID: "tx-2"}, {ID: 1, TransactionID: "tx-1"}}
		f.rechargeRepo.On("GetByCustomerID", ctx, int64(7), 10, 0).Return(records, nil)

		got, err := f.service.GetRecharges(ctx, 7, 1, 10)

		assert.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newRechargeFixture()

		f.customerRepo.On("GetByID", ctx, int64(99)).Return(nil, customer.ErrCustomerNotFound{CustomerID: 99})

		_, err := f.service.GetRecharges(ctx, 99, 1, 10)
		assert.ErrorIs(t, err, customer.ErrCustomerNotFound{})
	})
}
