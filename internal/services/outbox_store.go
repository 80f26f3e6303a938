package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ruralpay/pointsledger/internal/models"
)

// OutboxStore records domain events in the transaction of the state change
// they describe. Delivery belongs to an external dispatcher.
type OutboxStore struct{}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

// Append inserts the event; it must be called with the command transaction.
func (s *OutboxStore) Append(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO points_outbox_events
			(id, tenant_id, aggregate_type, aggregate_id, event_type, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.TenantID, event.AggregateType, event.AggregateID, event.EventType,
		jsonOrEmpty(event.Payload), jsonOrEmpty(event.Metadata), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append outbox event %s: %w", event.EventType, err)
	}
	return nil
}

// ListPending locks up to limit undispatched events, oldest first. Rows held
// by another dispatcher are skipped.
func (s *OutboxStore) ListPending(ctx context.Context, tx *sql.Tx, limit int) ([]models.OutboxEvent, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, metadata, created_at
		FROM points_outbox_events
		WHERE dispatched_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox events: %w", err)
	}
	defer rows.Close()

	events := []models.OutboxEvent{}
	for rows.Next() {
		var event models.OutboxEvent
		if err := rows.Scan(&event.ID, &event.TenantID, &event.AggregateType, &event.AggregateID,
			&event.EventType, &event.Payload, &event.Metadata, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// MarkDispatched stamps the events as delivered.
func (s *OutboxStore) MarkDispatched(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE points_outbox_events SET dispatched_at = $1
		WHERE id = ANY($2::uuid[]) AND dispatched_at IS NULL`,
		time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox events dispatched: %w", err)
	}
	return nil
}
