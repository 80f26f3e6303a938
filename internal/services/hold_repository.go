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

// HoldStore persists holds and their status transitions.
type HoldStore struct{}

func NewHoldStore() *HoldStore {
	return &HoldStore{}
}

const holdColumns = `id, tenant_id, account_id, status, amount, reference_type,
	reference_id, expires_at, created_at, updated_at`

// FindByReference returns the hold for the reference, preferring the ACTIVE
// one and otherwise the most recent resolved one.
func (s *HoldStore) FindByReference(ctx context.Context, q DBTX, tenantID, accountID, referenceType, referenceID string) (*models.Hold, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+holdColumns+`
		FROM points_holds
		WHERE tenant_id = $1 AND account_id = $2 AND reference_type = $3 AND reference_id = $4
		ORDER BY (status = 'ACTIVE') DESC, created_at DESC
		LIMIT 1`,
		tenantID, accountID, referenceType, referenceID)

	hold, err := scanHold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find hold %s/%s: %w", referenceType, referenceID, err)
	}
	return hold, nil
}

// Create inserts a new ACTIVE hold. The partial unique index on ACTIVE holds
// turns a concurrent duplicate into ErrHoldConflict.
func (s *HoldStore) Create(ctx context.Context, q DBTX, hold *models.Hold) error {
	now := time.Now().UTC()
	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	hold.Status = models.HoldActive
	hold.CreatedAt = now
	hold.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO points_holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		hold.ID, hold.TenantID, hold.AccountID, string(hold.Status), hold.Amount,
		hold.ReferenceType, hold.ReferenceID, hold.ExpiresAt, hold.CreatedAt, hold.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrHoldConflict
	}
	if err != nil {
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

// Transition moves an ACTIVE hold to a terminal status.
func (s *HoldStore) Transition(ctx context.Context, q DBTX, hold *models.Hold, next models.HoldStatus) error {
	if !hold.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrHoldResolved, hold.Status, next)
	}

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE points_holds
		SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4 AND status = 'ACTIVE'`,
		string(next), now, hold.TenantID, hold.ID)
	if err != nil {
		return fmt.Errorf("transition hold %s: %w", hold.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrHoldResolved
	}

	hold.Status = next
	hold.UpdatedAt = now
	return nil
}

// ListExpired returns ACTIVE holds whose expiry is at or before the cutoff,
// oldest expiry first.
func (s *HoldStore) ListExpired(ctx context.Context, q DBTX, tenantID string, before time.Time, limit int) ([]models.Hold, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+holdColumns+`
		FROM points_holds
		WHERE tenant_id = $1 AND status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3`,
		tenantID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	holds := []models.Hold{}
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, *hold)
	}
	return holds, rows.Err()
}

func scanHold(row rowScanner) (*models.Hold, error) {
	var (
		hold      models.Hold
		status    string
		expiresAt sql.NullTime
	)
	err := row.Scan(&hold.ID, &hold.TenantID, &hold.AccountID, &status, &hold.Amount,
		&hold.ReferenceType, &hold.ReferenceID, &expiresAt, &hold.CreatedAt, &hold.UpdatedAt)
	if err != nil {
		return nil, err
	}

	hold.Status = models.HoldStatus(status)
	if expiresAt.Valid {
		hold.ExpiresAt = &expiresAt.Time
	}
	return &hold, nil
}
