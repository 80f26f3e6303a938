package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/pointsledger/internal/models"
)

// AccountStore manages the per-owner anchor rows.
type AccountStore struct{}

func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

// FindOrCreate resolves the account for an owner, creating it on first use.
// Concurrent creators converge on the same row through the unique constraint.
func (s *AccountStore) FindOrCreate(ctx context.Context, q DBTX, tenantID, ownerType, ownerID string) (*models.Account, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO points_accounts (id, tenant_id, owner_type, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, owner_type, owner_id) DO NOTHING`,
		uuid.NewString(), tenantID, ownerType, ownerID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return s.Find(ctx, q, tenantID, ownerType, ownerID)
}

// Find returns ErrAccountNotFound when the owner has never been credited.
func (s *AccountStore) Find(ctx context.Context, q DBTX, tenantID, ownerType, ownerID string) (*models.Account, error) {
	var account models.Account
	err := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, owner_type, owner_id, created_at
		FROM points_accounts
		WHERE tenant_id = $1 AND owner_type = $2 AND owner_id = $3`,
		tenantID, ownerType, ownerID).Scan(
		&account.ID, &account.TenantID, &account.OwnerType, &account.OwnerID, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

// LockForUpdate takes the row lock that serializes every balance-affecting
// command on the account. It is held until the transaction ends.
func (s *AccountStore) LockForUpdate(ctx context.Context, tx *sql.Tx, tenantID, accountID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM points_accounts
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`,
		tenantID, accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account %s: %w", accountID, err)
	}
	return nil
}
