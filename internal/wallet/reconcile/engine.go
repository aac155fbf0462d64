// Package reconcile audits stored balance snapshots against the ledger.
// Audits are strictly read-only: findings are graded by severity and routed
// to admin review, never auto-corrected.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualnum-wallet-ledger/internal/config"
	mongodata "github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/domain/customer"
	"github.com/virtualnum-wallet-ledger/internal/domain/ledger"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

// ReadTxRunner runs a function in a repeatable-read, read-only database
// transaction. Satisfied by persistence.PostgresDB.
type ReadTxRunner interface {
	ExecuteReadTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Report is the outcome of auditing one customer
type Report struct {
	CustomerID int64           `json:"customer_id"`
	Expected   int64           `json:"expected"`
	Actual     int64           `json:"actual"`
	Diff       int64           `json:"diff"` // actual - expected
	Severity   shared.Severity `json:"severity"`
	AuditedAt  time.Time       `json:"audited_at"`
}

// Engine recomputes expected balances from the ledger and flags divergence.
// Severity thresholds come from configuration, not code.
type Engine struct {
	db           ReadTxRunner
	customerRepo customer.Repository
	ledgerRepo   ledger.Repository
	archive      *mongodata.AuditArchive
	thresholds   config.ReconciliationConfig
	logger       *slog.Logger
}

// NewEngine creates a reconciliation engine. archive may be nil; report
// persistence is best-effort either way.
func NewEngine(
	db ReadTxRunner,
	customerRepo customer.Repository,
	ledgerRepo ledger.Repository,
	archive *mongodata.AuditArchive,
	thresholds config.ReconciliationConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:           db,
		customerRepo: customerRepo,
		ledgerRepo:   ledgerRepo,
		archive:      archive,
		thresholds:   thresholds,
		logger:       logger,
	}
}

// AuditCustomer compares the customer's stored balance against the ledger
// fold. Both reads happen in one repeatable-read snapshot, so an audit racing
// live traffic sees a consistent pair and never blocks the balance mutator.
func (e *Engine) AuditCustomer(ctx context.Context, customerID int64) (*Report, error) {
	var report *Report

	err := e.db.ExecuteReadTx(ctx, func(tx pgx.Tx) error {
		c, err := e.customerRepo.WithTx(tx).GetByID(ctx, customerID)
		if err != nil {
			return err
		}

		expected, hasEntries, err := e.ledgerRepo.WithTx(tx).FoldBalance(ctx, customerID)
		if err != nil {
			return err
		}
		if !hasEntries {
			// Pre-ledger account with no entries yet: the snapshot is the
			// only source of truth, nothing to diverge from.
			expected = c.Balance
		}

		diff := c.Balance - expected
		report = &Report{
			CustomerID: customerID,
			Expected:   expected,
			Actual:     c.Balance,
			Diff:       diff,
			Severity:   e.classify(diff),
			AuditedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.Severity != shared.SeverityNone {
		e.logger.Warn("Balance divergence detected",
			"customer_id", report.CustomerID,
			"expected", report.Expected,
			"actual", report.Actual,
			"diff", report.Diff,
			"severity", report.Severity,
		)
	}

	e.persistReport(ctx, report)

	return report, nil
}

// ListDivergent audits every customer and returns those whose severity is at
// least minSeverity. Customers whose balance matches the ledger are never
// included, whatever the minimum.
func (e *Engine) ListDivergent(ctx context.Context, minSeverity shared.Severity) ([]*Report, error) {
	ids, err := e.customerRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	rank := severityRank(minSeverity)
	var reports []*Report
	for _, id := range ids {
		report, err := e.AuditCustomer(ctx, id)
		if err != nil {
			e.logger.Error("Failed to audit customer during sweep", "customer_id", id, "error", err)
			continue
		}
		if report.Severity != shared.SeverityNone && severityRank(report.Severity) >= rank {
			reports = append(reports, report)
		}
	}

	return reports, nil
}

// classify grades a divergence using the configured thresholds
func (e *Engine) classify(diff int64) shared.Severity {
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs == 0:
		return shared.SeverityNone
	case abs < e.thresholds.LowThreshold:
		return shared.SeverityLow
	case abs < e.thresholds.MediumThreshold:
		return shared.SeverityMedium
	default:
		return shared.SeverityCritical
	}
}

// persistReport archives the finding for history; failures are logged only
func (e *Engine) persistReport(ctx context.Context, report *Report) {
	if e.archive == nil {
		return
	}

	archived := &mongodata.AuditReport{
		CustomerID: report.CustomerID,
		Expected:   report.Expected,
		Actual:     report.Actual,
		Diff:       report.Diff,
		Severity:   report.Severity,
		AuditedAt:  report.AuditedAt,
	}
	if err := e.archive.SaveAuditReport(ctx, archived); err != nil {
		e.logger.Error("Failed to archive audit report", "customer_id", report.CustomerID, "error", err)
	}
}

func severityRank(s shared.Severity) int {
	switch s {
	case shared.SeverityLow:
		return 1
	case shared.SeverityMedium:
		return 2
	case shared.SeverityCritical:
		return 3
	default:
		return 0
	}
}
