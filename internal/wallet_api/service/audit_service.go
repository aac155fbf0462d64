package service

import (
	"context"

	mongodata "github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/wallet/reconcile"
)

// AuditArchiveReader reads archived reconciliation reports
type AuditArchiveReader interface {
	LatestAuditReports(ctx context.Context, limit int64) ([]*mongodata.AuditReport, error)
}

// AuditServiceImpl implements the AuditService interface
type AuditServiceImpl struct {
	engine  *reconcile.Engine
	archive AuditArchiveReader
}

// NewAuditService creates a new audit service. archive may be nil when no
// report history store is configured.
func NewAuditService(engine *reconcile.Engine, archive AuditArchiveReader) AuditService {
	return &AuditServiceImpl{engine: engine, archive: archive}
}

// AuditCustomer compares one customer's stored balance against the ledger fold
func (s *AuditServiceImpl) AuditCustomer(ctx context.Context, customerID int64) (*reconcile.Report, error) {
	return s.engine.AuditCustomer(ctx, customerID)
}

// ListDivergent audits all customers and returns those at or above minSeverity
func (s *AuditServiceImpl) ListDivergent(ctx context.Context, minSeverity shared.Severity) ([]*reconcile.Report, error) {
	return s.engine.ListDivergent(ctx, minSeverity)
}

// ReportHistory returns recently archived reports, newest first
func (s *AuditServiceImpl) ReportHistory(ctx context.Context, limit int64) ([]*mongodata.AuditReport, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.LatestAuditReports(ctx, limit)
}
