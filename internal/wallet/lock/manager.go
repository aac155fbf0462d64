// Package lock provides per-customer mutual exclusion for wallet operations.
// Operations for the same customer run strictly one at a time in FIFO order;
// operations for distinct customers never block each other.
package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Operation is a critical section executed under a customer's lock
type Operation func(ctx context.Context) error

// Manager serializes operations per customer id. Each customer has a chain of
// waiters: a new operation parks behind the previous operation's done channel
// and runs once that settles, whether it succeeded or failed. Registration is
// removed unconditionally once the last waiter settles, so the map never
// grows beyond the set of customers with in-flight work.
type Manager struct {
	logger            *slog.Logger
	holdWarnThreshold time.Duration

	mu      sync.Mutex
	tails   map[int64]chan struct{}
	waiters map[int64]int
}

// NewManager creates a lock manager. Operations holding a lock longer than
// holdWarnThreshold are logged as an operational risk; they are never
// cancelled, since financial correctness favors eventual execution.
func NewManager(logger *slog.Logger, holdWarnThreshold time.Duration) *Manager {
	return &Manager{
		logger:            logger,
		holdWarnThreshold: holdWarnThreshold,
		tails:             make(map[int64]chan struct{}),
		waiters:           make(map[int64]int),
	}
}

// ExecuteWithLock runs op under the customer's lock. If another operation is
// in flight for the same customer, the call waits for it to settle first;
// queued operations run in arrival order. Errors from op propagate to the
// caller and do not poison subsequent queued operations. There is no timeout:
// a stuck operation blocks that customer's queue until it returns.
func (m *Manager) ExecuteWithLock(ctx context.Context, customerID int64, op Operation) error {
	done := make(chan struct{})

	m.mu.Lock()
	prev := m.tails[customerID]
	m.tails[customerID] = done
	m.waiters[customerID]++
	m.mu.Unlock()

	if prev != nil {
		// Wait for the predecessor to settle, ignoring its outcome. The wait
		// is deliberately not interruptible by ctx: once queued, an operation
		// always runs.
		<-prev
	}

	start := time.Now()
	defer func() {
		held := time.Since(start)
		if held > m.holdWarnThreshold {
			m.logger.Warn("Operation held customer lock past threshold",
				"customer_id", customerID,
				"held", held,
				"threshold", m.holdWarnThreshold,
			)
		}

		close(done)

		m.mu.Lock()
		m.waiters[customerID]--
		if m.waiters[customerID] == 0 {
			delete(m.tails, customerID)
			delete(m.waiters, customerID)
		}
		m.mu.Unlock()
	}()

	return op(ctx)
}

// Pending returns the number of customers with registered operations.
// Exposed for observability and tests.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tails)
}
