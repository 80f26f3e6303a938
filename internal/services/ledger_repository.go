package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/pointsledger/internal/models"
)

// LedgerStore appends and reads ledger entries. Entries are never updated
// or deleted; the table trigger rejects both.
type LedgerStore struct{}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

const entryColumns = `id, tenant_id, account_id, entry_type, amount, reason_code,
	reference_type, reference_id, idempotency_key, metadata, created_at`

// Append assigns the entry's ID and timestamp when unset and inserts it.
func (s *LedgerStore) Append(ctx context.Context, q DBTX, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var idempotencyKey sql.NullString
	if entry.IdempotencyKey != nil {
		idempotencyKey = nullableString(*entry.IdempotencyKey)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO points_ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.TenantID, entry.AccountID, string(entry.EntryType), entry.Amount,
		entry.ReasonCode, entry.ReferenceType, entry.ReferenceID, idempotencyKey,
		jsonOrEmpty(entry.Metadata), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append %s entry: %w", entry.EntryType, err)
	}
	return nil
}

// Aggregates sums the account's entries by type and its ACTIVE holds in a
// single statement.
func (s *LedgerStore) Aggregates(ctx context.Context, q DBTX, tenantID, accountID string) (models.Aggregates, error) {
	var agg models.Aggregates
	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'CREDIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'DEBIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'COMMIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'REVERSAL'), 0),
			(SELECT COALESCE(SUM(h.amount), 0) FROM points_holds h
				WHERE h.tenant_id = $1 AND h.account_id = $2 AND h.status = 'ACTIVE')
		FROM points_ledger_entries
		WHERE tenant_id = $1 AND account_id = $2`,
		tenantID, accountID).Scan(&agg.Credits, &agg.Debits, &agg.Commits, &agg.Reversals, &agg.ActiveHolds)
	if err != nil {
		return models.Aggregates{}, fmt.Errorf("aggregate account %s: %w", accountID, err)
	}
	return agg, nil
}

// Find loads one entry of the account.
func (s *LedgerStore) Find(ctx context.Context, q DBTX, tenantID, accountID, entryID string) (*models.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM points_ledger_entries
		WHERE tenant_id = $1 AND account_id = $2 AND id = $3`,
		tenantID, accountID, entryID)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry %s: %w", entryID, err)
	}
	return entry, nil
}

// HasReversal reports whether a REVERSAL already references the entry.
func (s *LedgerStore) HasReversal(ctx context.Context, q DBTX, tenantID, accountID, entryID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM points_ledger_entries
			WHERE tenant_id = $1 AND account_id = $2 AND entry_type = 'REVERSAL'
				AND reference_type = $3 AND reference_id = $4
		)`,
		tenantID, accountID, ReversalReferenceType, entryID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reversal of %s: %w", entryID, err)
	}
	return exists, nil
}

// Statement returns one page of entries, newest first, and the total number
// of entries matching the filter.
func (s *LedgerStore) Statement(ctx context.Context, q DBTX, tenantID, accountID string, filter models.StatementFilter, limit, offset int) ([]models.LedgerEntry, int, error) {
	where := []string{"tenant_id = $1", "account_id = $2"}
	args := []any{tenantID, accountID}
	argIdx := 3

	if len(filter.EntryTypes) > 0 {
		placeholders := make([]string, len(filter.EntryTypes))
		for i, t := range filter.EntryTypes {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, string(t))
			argIdx++
		}
		where = append(where, "entry_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ReferenceType != "" {
		where = append(where, fmt.Sprintf("reference_type = $%d", argIdx))
		args = append(args, filter.ReferenceType)
		argIdx++
	}
	if filter.ReferenceID != "" {
		where = append(where, fmt.Sprintf("reference_id = $%d", argIdx))
		args = append(args, filter.ReferenceID)
		argIdx++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM points_ledger_entries WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count statement: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM points_ledger_entries WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		entryColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list statement: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan statement entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var (
		entry          models.LedgerEntry
		entryType      string
		idempotencyKey sql.NullString
		metadata       []byte
	)
	err := row.Scan(&entry.ID, &entry.TenantID, &entry.AccountID, &entryType, &entry.Amount,
		&entry.ReasonCode, &entry.ReferenceType, &entry.ReferenceID, &idempotencyKey,
		&metadata, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry.EntryType = models.EntryType(entryType)
	if idempotencyKey.Valid {
		entry.IdempotencyKey = &idempotencyKey.String
	}
	if len(metadata) > 0 {
		entry.Metadata = metadata
	}
	return &entry, nil
}
