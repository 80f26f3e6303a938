package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/pointsledger/internal/models"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel points events are published on.
const DefaultChannel = "points:events"

// Record is the audit form of a dispatched outbox event.
type Record struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	TenantID      string          `json:"tenantId"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// Publisher writes outbox events to the audit log and, when a Redis client
// is configured, to a pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

func NewPublisher(client *redis.Client, channel string, logger *zap.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, logger: logger, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	record := Record{
		Timestamp:     p.now().UTC(),
		EventID:       event.ID,
		EventType:     event.EventType,
		TenantID:      event.TenantID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		Metadata:      event.Metadata,
	}

	p.logger.Info("AUDIT",
		zap.String("event_id", record.EventID),
		zap.String("event_type", record.EventType),
		zap.String("tenant_id", record.TenantID),
		zap.String("aggregate_id", record.AggregateID),
		zap.ByteString("payload", record.Payload),
	)

	if p.client == nil {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", record.EventID, err)
	}
	return nil
}
