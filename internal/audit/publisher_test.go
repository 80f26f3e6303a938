package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/ruralpay/pointsledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testEvent() models.OutboxEvent {
	return models.OutboxEvent{
		ID:            "evt-1",
		TenantID:      "tenant-1",
		AggregateType: "PointsAccount",
		AggregateID:   "acct-1",
		EventType:     "points.credited",
		Payload:       json.RawMessage(`{"amount":100}`),
		Metadata:      json.RawMessage(`{"reasonCode":"SIGNUP"}`),
	}
}

func fixedPublisher(t *testing.T, p *Publisher) *Publisher {
	t.Helper()
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestPublisher_LogsWithoutRedis(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := fixedPublisher(t, NewPublisher(nil, "", zap.New(core)))

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	entries := logs.FilterMessage("AUDIT").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "points.credited", fields["event_type"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
}

func expectedRecord(t *testing.T, p *Publisher, event models.OutboxEvent) []byte {
	t.Helper()
	data, err := json.Marshal(Record{
		Timestamp:     p.now().UTC(),
		EventID:       event.ID,
		EventType:     event.EventType,
		TenantID:      event.TenantID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		Metadata:      event.Metadata,
	})
	require.NoError(t, err)
	return data
}

func TestPublisher_PublishesToChannel(t *testing.T) {
	client, mock := redismock.NewClientMock()
	p := fixedPublisher(t, NewPublisher(client, "", zap.NewNop()))
	event := testEvent()

	mock.ExpectPublish(DefaultChannel, expectedRecord(t, p, event)).SetVal(1)

	require.NoError(t, p.Publish(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_PublishError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	p := fixedPublisher(t, NewPublisher(client, "custom", zap.NewNop()))
	event := testEvent()

	mock.ExpectPublish("custom", expectedRecord(t, p, event)).SetErr(errors.New("connection refused"))

	err := p.Publish(context.Background(), event)
	assert.ErrorContains(t, err, "publish evt-1")
}
