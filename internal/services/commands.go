package services

import (
	"context"
	"time"

	"github.com/ruralpay/pointsledger/internal/models"
)

// Idempotency scopes, one per command.
const (
	ScopeCredit  = "points.credit"
	ScopeDebit   = "points.debit"
	ScopeHold    = "points.hold"
	ScopeCommit  = "points.commit"
	ScopeRelease = "points.release"
	ScopeExpire  = "points.expire"
	ScopeReverse = "points.reverse"
)

// Fields tagged json:"-" are excluded from the idempotency request hash:
// the tenant and key already identify the record.

// PointsCommand credits or debits an owner's balance.
type PointsCommand struct {
	TenantID       string `json:"-" validate:"required,max=64"`
	OwnerType      string `json:"ownerType" validate:"required,max=64"`
	OwnerID        string `json:"ownerId" validate:"required,max=128"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	ReasonCode     string `json:"reasonCode" validate:"required,max=64"`
	ReferenceType  string `json:"referenceType,omitempty" validate:"max=64"`
	ReferenceID    string `json:"referenceId,omitempty" validate:"max=128"`
	IdempotencyKey string `json:"-" validate:"max=255"`
}

// HoldCommand reserves points against a reference.
type HoldCommand struct {
	TenantID       string     `json:"-" validate:"required,max=64"`
	OwnerType      string     `json:"ownerType" validate:"required,max=64"`
	OwnerID        string     `json:"ownerId" validate:"required,max=128"`
	Amount         int64      `json:"amount" validate:"gt=0"`
	ReasonCode     string     `json:"reasonCode" validate:"required,max=64"`
	ReferenceType  string     `json:"referenceType" validate:"required,max=64"`
	ReferenceID    string     `json:"referenceId" validate:"required,max=128"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	IdempotencyKey string     `json:"-" validate:"max=255"`
}

// HoldResolutionCommand commits, releases or expires the ACTIVE hold of a reference.
type HoldResolutionCommand struct {
	TenantID       string `json:"-" validate:"required,max=64"`
	OwnerType      string `json:"ownerType" validate:"required,max=64"`
	OwnerID        string `json:"ownerId" validate:"required,max=128"`
	ReferenceType  string `json:"referenceType" validate:"required,max=64"`
	ReferenceID    string `json:"referenceId" validate:"required,max=128"`
	ReasonCode     string `json:"reasonCode,omitempty" validate:"max=64"`
	IdempotencyKey string `json:"-" validate:"max=255"`
}

// ReverseCommand offsets a DEBIT or COMMIT entry.
type ReverseCommand struct {
	TenantID       string `json:"-" validate:"required,max=64"`
	OwnerType      string `json:"ownerType" validate:"required,max=64"`
	OwnerID        string `json:"ownerId" validate:"required,max=128"`
	EntryID        string `json:"entryId" validate:"required,max=64"`
	ReasonCode     string `json:"reasonCode" validate:"required,max=64"`
	IdempotencyKey string `json:"-" validate:"max=255"`
}

// StatementQuery selects a page of an owner's ledger entries.
type StatementQuery struct {
	TenantID  string
	OwnerType string
	OwnerID   string
	Page      int
	PageSize  int
	Filter    StatementFilterInput
}

// StatementFilterInput mirrors models.StatementFilter with raw entry type names.
type StatementFilterInput struct {
	EntryTypes    []string
	ReferenceType string
	ReferenceID   string
	From          *time.Time
	To            *time.Time
}

// Default reason codes for hold resolutions without an explicit one.
const (
	ReasonHoldCommitted = "HOLD_COMMITTED"
	ReasonHoldReleased  = "HOLD_RELEASED"
	ReasonHoldExpired   = "HOLD_EXPIRED"
)

// ReversalReferenceType marks a REVERSAL entry's reference as the reversed entry.
const ReversalReferenceType = "LEDGER_ENTRY"

// Outbox event types.
const (
	AggregateTypeAccount = "PointsAccount"

	EventCredited      = "points.credited"
	EventDebited       = "points.debited"
	EventHeld          = "points.held"
	EventHoldCommitted = "points.hold_committed"
	EventHoldReleased  = "points.hold_released"
	EventHoldExpired   = "points.hold_expired"
	EventReversed      = "points.reversed"
)

// PointsPort is the engine's surface as seen by its callers.
type PointsPort interface {
	Credit(ctx context.Context, cmd PointsCommand) (*models.PointsResult, error)
	Debit(ctx context.Context, cmd PointsCommand) (*models.PointsResult, error)
	Hold(ctx context.Context, cmd HoldCommand) (*models.PointsResult, error)
	CommitHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error)
	ReleaseHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error)
	ExpireHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error)
	Reverse(ctx context.Context, cmd ReverseCommand) (*models.PointsResult, error)
	GetBalance(ctx context.Context, tenantID, ownerType, ownerID string) (models.Balance, error)
	ListStatement(ctx context.Context, query StatementQuery) (*models.StatementPage, error)
	ListExpiredHolds(ctx context.Context, tenantID string, before time.Time, limit int) ([]models.Hold, error)
}

var _ PointsPort = (*PointsService)(nil)
