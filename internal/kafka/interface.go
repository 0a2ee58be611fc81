package kafka

import (
	"context"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// MessagePublisher streams persisted messages to downstream consumers.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *domain.Message) error
	Close() error
}

// NoopPublisher drops everything. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.Message) error { return nil }

func (NoopPublisher) Close() error { return nil }
