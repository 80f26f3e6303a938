package models

import (
	"encoding/json"
	"time"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryCredit   EntryType = "CREDIT"
	EntryDebit    EntryType = "DEBIT"
	EntryHold     EntryType = "HOLD"
	EntryRelease  EntryType = "RELEASE"
	EntryCommit   EntryType = "COMMIT"
	EntryReversal EntryType = "REVERSAL"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryCredit, EntryDebit, EntryHold, EntryRelease, EntryCommit, EntryReversal:
		return true
	}
	return false
}

// Reversible reports whether an entry of this type may be offset by a REVERSAL.
func (t EntryType) Reversible() bool {
	return t == EntryDebit || t == EntryCommit
}

// Account anchors one owner's balance inside a tenant. It stores no balance;
// the row exists to be locked.
type Account struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenantId" db:"tenant_id"`
	OwnerType string    `json:"ownerType" db:"owner_type"`
	OwnerID   string    `json:"ownerId" db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// LedgerEntry is an immutable balance-affecting event.
type LedgerEntry struct {
	ID             string          `json:"id" db:"id"`
	TenantID       string          `json:"tenantId" db:"tenant_id"`
	AccountID      string          `json:"accountId" db:"account_id"`
	EntryType      EntryType       `json:"entryType" db:"entry_type"`
	Amount         int64           `json:"amount" db:"amount"`
	ReasonCode     string          `json:"reasonCode" db:"reason_code"`
	ReferenceType  string          `json:"referenceType" db:"reference_type"`
	ReferenceID    string          `json:"referenceId" db:"reference_id"`
	IdempotencyKey *string         `json:"idempotencyKey,omitempty" db:"idempotency_key"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// Aggregates are the per-account totals the balance is derived from.
type Aggregates struct {
	Credits     int64
	Debits      int64
	Commits     int64
	Reversals   int64
	ActiveHolds int64
}

// Balance is derived on read and never persisted.
type Balance struct {
	Current   int64 `json:"current"`
	Held      int64 `json:"held"`
	Available int64 `json:"available"`
}

// StatementFilter narrows a statement query. Zero values mean no constraint.
type StatementFilter struct {
	EntryTypes    []EntryType
	ReferenceType string
	ReferenceID   string
	From          *time.Time
	To            *time.Time
}

// StatementPage is one page of an account statement, newest entries first.
type StatementPage struct {
	Entries  []LedgerEntry `json:"entries"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}
