// Package mongo provides the MongoDB audit archive: raw webhook deliveries
// and reconciliation reports kept outside the transactional core for
// forensics and manual replay. Writes here are best-effort and never block a
// balance mutation or a webhook response.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
)

const (
	// WebhookCollectionName stores raw webhook deliveries as received
	WebhookCollectionName = "webhook_deliveries"

	// AuditReportCollectionName stores reconciliation report history
	AuditReportCollectionName = "audit_reports"
)

// WebhookDelivery is one raw webhook POST as received from a payment provider
type WebhookDelivery struct {
	Provider      string    `bson:"provider"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	Body          []byte    `bson:"body"`
	ReceivedAt    time.Time `bson:"received_at"`
}

// AuditReport is one persisted reconciliation finding
type AuditReport struct {
	CustomerID int64           `bson:"customer_id"`
	Expected   int64           `bson:"expected"`
	Actual     int64           `bson:"actual"`
	Diff       int64           `bson:"diff"`
	Severity   shared.Severity `bson:"severity"`
	AuditedAt  time.Time       `bson:"audited_at"`
}

// AuditArchive persists webhook deliveries and reconciliation reports
type AuditArchive struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditArchive creates a new MongoDB audit archive
func NewAuditArchive(logger *slog.Logger, db *mongo.Database) *AuditArchive {
	return &AuditArchive{
		db:     db,
		logger: logger,
	}
}

// ArchiveWebhook stores a raw webhook delivery
func (a *AuditArchive) ArchiveWebhook(ctx context.Context, delivery *WebhookDelivery) error {
	collection := a.db.Collection(WebhookCollectionName)

	if _, err := collection.InsertOne(ctx, delivery); err != nil {
		a.logger.Error("Failed to archive webhook delivery", "provider", delivery.Provider, "error", err)
		return fmt.Errorf("failed to archive webhook delivery: %w", err)
	}

	return nil
}

// SaveAuditReport stores a reconciliation finding
func (a *AuditArchive) SaveAuditReport(ctx context.Context, report *AuditReport) error {
	collection := a.db.Collection(AuditReportCollectionName)

	if _, err := collection.InsertOne(ctx, report); err != nil {
		a.logger.Error("Failed to save audit report", "customer_id", report.CustomerID, "error", err)
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	return nil
}

// LatestAuditReports returns the most recent reports, newest first
func (a *AuditArchive) LatestAuditReports(ctx context.Context, limit int64) ([]*AuditReport, error) {
	collection := a.db.Collection(AuditReportCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "audited_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		a.logger.Error("Failed to query audit reports", "error", err)
		return nil, fmt.Errorf("failed to query audit reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*AuditReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode audit reports: %w", err)
	}

	return reports, nil
}
