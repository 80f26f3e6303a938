package models

import (
	"encoding/json"
	"time"
)

// HoldStatus is the lifecycle state of a hold.
type HoldStatus string

const (
	HoldActive    HoldStatus = "ACTIVE"
	HoldCommitted HoldStatus = "COMMITTED"
	HoldReleased  HoldStatus = "RELEASED"
	HoldExpired   HoldStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldCommitted || s == HoldReleased || s == HoldExpired
}

// CanTransitionTo reports whether s may move to next.
func (s HoldStatus) CanTransitionTo(next HoldStatus) bool {
	return s == HoldActive && next.IsTerminal()
}

// Hold reserves part of an account's available balance against a reference.
type Hold struct {
	ID            string     `json:"id" db:"id"`
	TenantID      string     `json:"tenantId" db:"tenant_id"`
	AccountID     string     `json:"accountId" db:"account_id"`
	Status        HoldStatus `json:"status" db:"status"`
	Amount        int64      `json:"amount" db:"amount"`
	ReferenceType string     `json:"referenceType" db:"reference_type"`
	ReferenceID   string     `json:"referenceId" db:"reference_id"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// IdempotencyStatus tracks a deduplicated command.
type IdempotencyStatus string

const (
	IdempotencyInProgress IdempotencyStatus = "IN_PROGRESS"
	IdempotencyCompleted  IdempotencyStatus = "COMPLETED"
	IdempotencyFailed     IdempotencyStatus = "FAILED"
)

// IdempotencyRecord is keyed by (tenant, scope, key).
type IdempotencyRecord struct {
	ID           string            `db:"id"`
	TenantID     string            `db:"tenant_id"`
	Scope        string            `db:"scope"`
	Key          string            `db:"key"`
	RequestHash  string            `db:"request_hash"`
	Status       IdempotencyStatus `db:"status"`
	ResponseBody json.RawMessage   `db:"response_body"`
	ErrorBody    json.RawMessage   `db:"error_body"`
	ExpiresAt    time.Time         `db:"expires_at"`
}

// OutboxEvent is written in the same transaction as the state change it describes.
type OutboxEvent struct {
	ID            string          `json:"id" db:"id"`
	TenantID      string          `json:"tenantId" db:"tenant_id"`
	AggregateType string          `json:"aggregateType" db:"aggregate_type"`
	AggregateID   string          `json:"aggregateId" db:"aggregate_id"`
	EventType     string          `json:"eventType" db:"event_type"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	Metadata      json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	DispatchedAt  *time.Time      `json:"dispatchedAt,omitempty" db:"dispatched_at"`
}

// PointsResult is the response of every mutating points command. It is
// stored verbatim as the idempotency response body.
type PointsResult struct {
	AccountID string     `json:"accountId"`
	HoldID    string     `json:"holdId,omitempty"`
	EntryID   string     `json:"entryId,omitempty"`
	Status    HoldStatus `json:"status,omitempty"`
	Balance   *Balance   `json:"balance,omitempty"`
	Replayed  bool       `json:"-"`
}
