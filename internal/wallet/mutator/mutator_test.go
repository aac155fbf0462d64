package mutator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/domain/notification"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByPIN(ctx context.Context, pin int) (*customer.Customer, error) {
	args := m.Called(ctx, pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCustomerRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) LockForUpdate(ctx context.Context, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) SetBalance(ctx context.Context, id int64, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockCustomerRepository) WithTx(tx pgx.Tx) customer.Repository {
	m.Called(tx)
	return m
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByCustomerID(ctx context.Context, customerID int64, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) FoldBalance(ctx context.Context, customerID int64) (int64, bool, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	m.Called(tx)
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, event *notification.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*notification.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Event), args.Error(1)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) notification.Repository {
	m.Called(tx)
	return m
}

func newTestMutator() (*BalanceMutator, *MockCustomerRepository, *MockLedgerRepository, *MockOutboxRepository) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	customerRepo := new(MockCustomerRepository)
	ledgerRepo := new(MockLedgerRepository)
	outboxRepo := new(MockOutboxRepository)
	return NewBalanceMutator(customerRepo, ledgerRepo, outboxRepo, logger), customerRepo, ledgerRepo, outboxRepo
}

func activeCustomer(balance int64) *customer.Customer {
	now := time.Now()
	return &customer.Customer{
		ID:        7,
		PIN:       1042,
		Name:      "Maria Silva",
		Balance:   balance,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBalanceMutator_ApplyTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("credit appends entry and stages notification", func(t *testing.T) {
		m, customerRepo, ledgerRepo, outboxRepo := newTestMutator()

		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(7)).Return(activeCustomer(500), nil)
		customerRepo.On("SetBalance", ctx, int64(7), int64(1500)).Return(nil)
		ledgerRepo.On("WithTx", nil).Return()
		ledgerRepo.On("Append", ctx, mock.MatchedBy(func(e *ledger.Entry) bool {
			return e.CustomerID == 7 && e.Amount == 1000 && e.BalanceBefore == 500 && e.BalanceAfter == 1500
		})).Return(nil)
		outboxRepo.On("WithTx", nil).Return()
		outboxRepo.On("Create", ctx, mock.MatchedBy(func(e *notification.Event) bool {
			return e.CustomerID == 7 && e.Type == shared.NotificationBalanceUpdated
		})).Return(nil)

		result, err := m.ApplyTransaction(ctx, nil, 7, 1000, shared.TransactionTypeCredit, shared.OriginSystem, "Recarga PIX")

		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, int64(500), result.BalanceBefore)
		assert.Equal(t, int64(1500), result.BalanceAfter)
		assert.Equal(t, int64(1000), result.Entry.Amount)
		customerRepo.AssertExpectations(t)
		ledgerRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("debit within balance succeeds", func(t *testing.T) {
		m, customerRepo, ledgerRepo, outboxRepo := newTestMutator()

		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(7)).Return(activeCustomer(1000), nil)
		customerRepo.On("SetBalance", ctx, int64(7), int64(0)).Return(nil)
		ledgerRepo.On("WithTx", nil).Return()
		ledgerRepo.On("Append", ctx, mock.Anything).Return(nil)
		outboxRepo.On("WithTx", nil).Return()
		outboxRepo.On("Create", ctx, mock.Anything).Return(nil)

		result, err := m.ApplyTransaction(ctx, nil, 7, -1000, shared.TransactionTypePurchase, shared.OriginCustomer, "Compra de numero virtual")

		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, int64(0), result.BalanceAfter)
		customerRepo.AssertExpectations(t)
	})

	t.Run("debit beyond balance is rejected outright", func(t *testing.T) {
		m, customerRepo, ledgerRepo, outboxRepo := newTestMutator()

		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(7)).Return(activeCustomer(500), nil)

		result, err := m.ApplyTransaction(ctx, nil, 7, -750, shared.TransactionTypePurchase, shared.OriginCustomer, "Compra de numero virtual")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, customer.ErrInsufficientBalance{})
		var insufficient customer.ErrInsufficientBalance
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(500), insufficient.Balance)
		assert.Equal(t, int64(750), insufficient.Requested)

		// No partial debit: neither the snapshot nor the ledger is touched
		customerRepo.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
		ledgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("inactive customer is rejected", func(t *testing.T) {
		m, customerRepo, _, _ := newTestMutator()

		c := activeCustomer(500)
		c.Active = false
		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(7)).Return(c, nil)

		result, err := m.ApplyTransaction(ctx, nil, 7, 1000, shared.TransactionTypeCredit, shared.OriginSystem, "Recarga PIX")

		assert.Nil(t, result)
		var inactive customer.ErrCustomerInactive
		assert.ErrorAs(t, err, &inactive)
		assert.Equal(t, int64(7), inactive.CustomerID)
	})

	t.Run("unknown customer", func(t *testing.T) {
		m, customerRepo, _, _ := newTestMutator()

		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(99)).Return(nil, customer.ErrCustomerNotFound{CustomerID: 99})

		result, err := m.ApplyTransaction(ctx, nil, 99, 1000, shared.TransactionTypeCredit, shared.OriginSystem, "Recarga PIX")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, customer.ErrCustomerNotFound{})
	})

	t.Run("ledger append failure aborts the mutation", func(t *testing.T) {
		m, customerRepo, ledgerRepo, outboxRepo := newTestMutator()

		customerRepo.On("WithTx", nil).Return()
		customerRepo.On("LockForUpdate", ctx, int64(7)).Return(activeCustomer(500), nil)
		customerRepo.On("SetBalance", ctx, int64(7), int64(1500)).Return(nil)
		ledgerRepo.On("WithTx", nil).Return()
		ledgerRepo.On("Append", ctx, mock.Anything).Return(errors.New("connection refused"))

		result, err := m.ApplyTransaction(ctx, nil, 7, 1000, shared.TransactionTypeCredit, shared.OriginSystem, "Recarga PIX")

		assert.Nil(t, result)
		assert.Error(t, err)
		outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
