package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/pointsledger/internal/models"
	"golang.org/x/crypto/blake2b"
)

// IdempotencyStore deduplicates retried commands by (tenant, scope, key).
//
// TryBegin, Complete and Fail all run inside the command transaction, so an
// IN_PROGRESS row is only ever visible to the transaction that created it.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// HashRequest fingerprints the business fields of a command. The fields are
// serialized as JSON so the hash is stable for a given struct layout.
func HashRequest(scope string, fields any) (string, error) {
	payload, err := json.Marshal(struct {
		Scope  string `json:"scope"`
		Fields any    `json:"fields"`
	}{scope, fields})
	if err != nil {
		return "", fmt.Errorf("hash request: %w", err)
	}

	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// TryBegin claims the key for this request.
//
// It returns (nil, nil) when the caller should execute the command, and the
// prior record when a COMPLETED or FAILED outcome must be replayed. A record
// past its expiry is treated as absent and re-armed with the new hash.
func (s *IdempotencyStore) TryBegin(ctx context.Context, tx *sql.Tx, tenantID, scope, key, requestHash string) (*models.IdempotencyRecord, error) {
	now := s.now()

	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO points_idempotency_records
			(id, tenant_id, scope, key, request_hash, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'IN_PROGRESS', $6, $7, $7)
		ON CONFLICT (tenant_id, scope, key) DO NOTHING
		RETURNING id`,
		uuid.NewString(), tenantID, scope, key, requestHash, now.Add(s.ttl), now).Scan(&id)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("begin idempotency %s/%s: %w", scope, key, err)
	}

	record := models.IdempotencyRecord{TenantID: tenantID, Scope: scope, Key: key}
	var (
		status       string
		responseBody []byte
		errorBody    []byte
	)
	// The bodies are NULL until the record completes or fails.
	err = tx.QueryRowContext(ctx, `
		SELECT id, request_hash, status, response_body, error_body, expires_at
		FROM points_idempotency_records
		WHERE tenant_id = $1 AND scope = $2 AND key = $3
		FOR UPDATE`,
		tenantID, scope, key).Scan(&record.ID, &record.RequestHash, &status,
		&responseBody, &errorBody, &record.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("load idempotency %s/%s: %w", scope, key, err)
	}
	record.Status = models.IdempotencyStatus(status)
	record.ResponseBody = responseBody
	record.ErrorBody = errorBody

	if !record.ExpiresAt.After(now) {
		_, err := tx.ExecContext(ctx, `
			UPDATE points_idempotency_records
			SET request_hash = $1, status = 'IN_PROGRESS', response_body = NULL,
				error_body = NULL, expires_at = $2, updated_at = $3
			WHERE id = $4`,
			requestHash, now.Add(s.ttl), now, record.ID)
		if err != nil {
			return nil, fmt.Errorf("re-arm idempotency %s/%s: %w", scope, key, err)
		}
		return nil, nil
	}

	if record.RequestHash != requestHash {
		return nil, ErrIdempotencyConflict
	}

	switch record.Status {
	case models.IdempotencyCompleted, models.IdempotencyFailed:
		return &record, nil
	default:
		return nil, ErrIdempotencyInProgress
	}
}

// Complete stores the response that later retries replay.
func (s *IdempotencyStore) Complete(ctx context.Context, tx *sql.Tx, tenantID, scope, key string, response []byte) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE points_idempotency_records
		SET status = 'COMPLETED', response_body = $1, updated_at = $2
		WHERE tenant_id = $3 AND scope = $4 AND key = $5`,
		string(response), s.now(), tenantID, scope, key)
	if err != nil {
		return fmt.Errorf("complete idempotency %s/%s: %w", scope, key, err)
	}
	return nil
}

// Fail records a business failure so retries receive the same error.
func (s *IdempotencyStore) Fail(ctx context.Context, tx *sql.Tx, tenantID, scope, key string, cause error) error {
	body, err := json.Marshal(newErrorBody(cause))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE points_idempotency_records
		SET status = 'FAILED', error_body = $1, updated_at = $2
		WHERE tenant_id = $3 AND scope = $4 AND key = $5`,
		string(body), s.now(), tenantID, scope, key)
	if err != nil {
		return fmt.Errorf("fail idempotency %s/%s: %w", scope, key, err)
	}
	return nil
}

// PurgeExpired deletes records whose retention window has passed.
func (s *IdempotencyStore) PurgeExpired(ctx context.Context, q DBTX, before time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM points_idempotency_records WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	return result.RowsAffected()
}
