package customer

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrEmptyName      = errors.New("customer name cannot be empty")
	ErrInvalidPIN     = errors.New("customer PIN must be a positive number")
	ErrInvalidBalance = errors.New("initial balance cannot be negative")
)

// Customer represents a wallet holder. Balance is stored in cents/minor units
// and must only ever be changed through the balance mutator, which keeps it
// equal to the fold of the customer's ledger entries.
type Customer struct {
	ID        int64     `json:"id"`
	PIN       int       `json:"pin"` // Human-facing unique identifier
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   int64     `json:"balance"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCustomer creates a new active customer with the given attributes
func NewCustomer(pin int, name, email string, initialBalance int64) (*Customer, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if pin <= 0 {
		return nil, ErrInvalidPIN
	}
	if initialBalance < 0 {
		return nil, ErrInvalidBalance
	}

	now := time.Now()
	return &Customer{
		PIN:       pin,
		Name:      name,
		Email:     email,
		Balance:   initialBalance,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanDebit checks if the customer has sufficient balance for a debit
func (c *Customer) CanDebit(amount int64) bool {
	return c.Balance >= amount
}

// ErrInsufficientBalance indicates a debit that would drive the balance negative.
// The operation is rejected outright; no partial debit is applied.
type ErrInsufficientBalance struct {
	CustomerID int64
	Balance    int64
	Requested  int64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance for customer %d: balance %d, requested %d", e.CustomerID, e.Balance, e.Requested)
}

// Is implements errors.Is matching; a target with CustomerID zero matches any customer
func (e ErrInsufficientBalance) Is(target error) bool {
	t, ok := target.(ErrInsufficientBalance)
	if !ok {
		return false
	}
	return t.CustomerID == 0 || t.CustomerID == e.CustomerID
}

// ErrCustomerNotFound indicates missing customer
type ErrCustomerNotFound struct {
	CustomerID int64
}

func (e ErrCustomerNotFound) Error() string {
	return fmt.Sprintf("customer not found: %d", e.CustomerID)
}

// Is implements errors.Is matching; a target with CustomerID zero matches any customer
func (e ErrCustomerNotFound) Is(target error) bool {
	t, ok := target.(ErrCustomerNotFound)
	if !ok {
		return false
	}
	return t.CustomerID == 0 || t.CustomerID == e.CustomerID
}

// ErrCustomerInactive indicates an operation against a deactivated customer
type ErrCustomerInactive struct {
	CustomerID int64
}

func (e ErrCustomerInactive) Error() string {
	return fmt.Sprintf("customer is deactivated: %d", e.CustomerID)
}

// ErrDuplicatePIN indicates PIN uniqueness violation
type ErrDuplicatePIN struct {
	PIN int
}

func (e ErrDuplicatePIN) Error() string {
	return fmt.Sprintf("customer with PIN already exists: %d", e.PIN)
}
