package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes customer notifications to the primary topic.
// Keys are customer ids so per-customer ordering is preserved.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher receives notifications that exhausted their delivery
// attempts, preserving the original payload for inspection.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
