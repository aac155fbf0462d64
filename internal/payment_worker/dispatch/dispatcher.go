// Package dispatch drains the notification outbox into Kafka. Outbox rows are
// written transactionally with the balance mutation they describe; the
// dispatcher gives them at-least-once delivery to the broker and routes
// poison rows to the DLQ after the retry budget is spent.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/config"
	"github.com/virtualnum-wallet-ledger/internal/domain/notification"
	"github.com/virtualnum-wallet-ledger/internal/domain/shared"
	"github.com/virtualnum-wallet-ledger/internal/platform/messaging/producers"
)

// envelope is the wire shape published to the notification topic
type envelope struct {
	ID         int64                   `json:"id"`
	CustomerID int64                   `json:"customer_id"`
	Type       shared.NotificationType `json:"type"`
	Payload    interface{}             `json:"payload"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Dispatcher polls pending outbox events and publishes them
type Dispatcher struct {
	outboxRepo       notification.Repository
	publisher        producers.MessagePublisher
	dlq              producers.DeadLetterPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewDispatcher(
	cfg *config.NotificationConfig,
	outboxRepo notification.Repository,
	publisher producers.MessagePublisher,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		dlq:              dlq,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher",
		"poll_interval", d.pollInterval.String(),
		"batch_size", d.batchSize,
		"max_retry_attempts", d.maxRetryAttempts,
	)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopping due to context cancellation.")
			return
		case <-ticker.C:
			d.logger.Debug("Notification dispatcher tick: processing pending events")
			if err := d.ProcessPending(ctx); err != nil {
				d.logger.Error("Error during batch processing of pending notifications", "error", err)
			}
		}
	}
}

// ProcessPending publishes one batch of pending outbox events. A publish
// failure increments the attempt count; once the budget is spent the event is
// marked FAILED_TO_PUBLISH and handed to the DLQ for manual inspection.
func (d *Dispatcher) ProcessPending(ctx context.Context) error {
	events, err := d.outboxRepo.GetPending(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending notification events: %w", err)
	}

	if len(events) == 0 {
		d.logger.Debug("No pending notification events found.")
		return nil
	}

	d.logger.Info("Fetched pending notification events", "count", len(events))

	for _, event := range events {
		logger := d.logger.With("outbox_id", event.ID, "customer_id", event.CustomerID, "event_type", event.Type)

		key := strconv.FormatInt(event.CustomerID, 10)
		msg := envelope{
			ID:         event.ID,
			CustomerID: event.CustomerID,
			Type:       event.Type,
			Payload:    event.Payload,
			CreatedAt:  event.CreatedAt,
		}

		if err := d.publisher.Publish(ctx, key, msg); err != nil {
			logger.Error("Failed to publish notification event", "current_attempts", event.Attempts, "error", err)

			if errInc := d.outboxRepo.IncrementAttempts(ctx, event.ID); errInc != nil {
				logger.Error("Failed to increment attempts for notification event", "error", errInc)
				continue
			}

			if event.Attempts+1 >= d.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for notification event, marking as FAILED_TO_PUBLISH",
					"attempts_made", event.Attempts+1,
				)
				if errUpdate := d.outboxRepo.UpdateStatus(ctx, event.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update notification event status to FAILED_TO_PUBLISH", "error", errUpdate)
				}
				if d.dlq != nil {
					if errDLQ := d.dlq.PublishToDLQ(ctx, key, event.Payload, "max_retry_attempts_exceeded"); errDLQ != nil {
						logger.Error("Failed to publish notification event to DLQ", "error", errDLQ)
					}
				}
			}
			continue
		}

		if err := d.outboxRepo.UpdateStatus(ctx, event.ID, shared.OutboxStatusProcessed); err != nil {
			// The event will be republished next tick; consumers tolerate duplicates
			logger.Error("Published notification but failed to mark outbox event as PROCESSED", "error", err)
			continue
		}
		logger.Info("Published notification event")
	}
	return nil
}
