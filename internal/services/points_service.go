package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/pointsledger/internal/config"
	"github.com/ruralpay/pointsledger/internal/models"
	"go.uber.org/zap"
)

const commandSavepoint = "points_command"

// PointsService runs the points commands. Each command is one database
// transaction: idempotency claim, account lock, aggregate read, rule check,
// ledger/hold mutation, outbox event, idempotency outcome, commit.
type PointsService struct {
	db          *sql.DB
	accounts    *AccountStore
	ledger      *LedgerStore
	holds       *HoldStore
	idempotency *IdempotencyStore
	outbox      *OutboxStore
	cache       *BalanceCache
	validator   *ValidationHelper
	cfg         *config.LedgerConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewPointsService(db *sql.DB, cache *BalanceCache, cfg *config.LedgerConfig, logger *zap.Logger) *PointsService {
	return &PointsService{
		db:          db,
		accounts:    NewAccountStore(),
		ledger:      NewLedgerStore(),
		holds:       NewHoldStore(),
		idempotency: NewIdempotencyStore(cfg.IdempotencyTTL),
		outbox:      NewOutboxStore(),
		cache:       cache,
		validator:   NewValidationHelper(),
		cfg:         cfg,
		logger:      logger.Named("points"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type commandSpec struct {
	name      string
	scope     string
	tenantID  string
	ownerType string
	ownerID   string
	key       string
	request   any
}

type applyFunc func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error)

// execute wraps apply in the command transaction.
//
// With an idempotency key, apply runs behind a savepoint. A business failure
// rolls back to the savepoint, so only the FAILED marker is committed.
// Infrastructure failures roll back everything, including the claim, and the
// command is safe to retry with the same key.
func (s *PointsService) execute(ctx context.Context, spec commandSpec, apply applyFunc) (result *models.PointsResult, err error) {
	start := time.Now()
	defer func() {
		commandsTotal.WithLabelValues(spec.name, outcomeOf(err, result != nil && result.Replayed)).Inc()
		commandDuration.WithLabelValues(spec.name).Observe(time.Since(start).Seconds())
	}()

	logger := s.logger.With(
		zap.String("command", spec.name),
		zap.String("tenant_id", spec.tenantID),
		zap.String("owner_type", spec.ownerType),
		zap.String("owner_id", spec.ownerID),
		zap.String("idempotency_key", spec.key),
	)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	var requestHash string
	if spec.key != "" {
		if requestHash, err = HashRequest(spec.scope, spec.request); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", spec.name, err)
	}
	defer tx.Rollback()

	if spec.key != "" {
		prior, beginErr := s.idempotency.TryBegin(ctx, tx, spec.tenantID, spec.scope, spec.key, requestHash)
		if beginErr != nil {
			logger.Warn("idempotency claim rejected", zap.Error(beginErr))
			return nil, beginErr
		}
		if prior != nil {
			logger.Info("replaying stored outcome", zap.String("status", string(prior.Status)))
			return s.replay(spec, prior)
		}
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+commandSavepoint); err != nil {
			return nil, fmt.Errorf("savepoint %s: %w", spec.name, err)
		}
	}

	result, err = apply(ctx, tx)
	if err != nil {
		if !IsBusinessError(err) {
			logger.Error("points command failed", zap.Error(err))
			return nil, err
		}
		logger.Info("points command rejected", zap.String("code", ErrorCode(err)))
		if spec.key == "" {
			return nil, err
		}
		return nil, s.recordFailure(ctx, tx, spec, err)
	}

	if spec.key != "" {
		body, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode %s response: %w", spec.name, marshalErr)
		}
		if err := s.idempotency.Complete(ctx, tx, spec.tenantID, spec.scope, spec.key, body); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("points command commit failed", zap.Error(err))
		return nil, fmt.Errorf("commit %s: %w", spec.name, err)
	}

	s.cache.Invalidate(ctx, spec.tenantID, spec.ownerType, spec.ownerID)
	logger.Info("points command applied",
		zap.String("account_id", result.AccountID),
		zap.String("entry_id", result.EntryID),
		zap.String("hold_id", result.HoldID),
	)
	return result, nil
}

func (s *PointsService) recordFailure(ctx context.Context, tx *sql.Tx, spec commandSpec, cause error) error {
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+commandSavepoint); err != nil {
		return fmt.Errorf("rollback %s to savepoint: %w", spec.name, err)
	}
	if err := s.idempotency.Fail(ctx, tx, spec.tenantID, spec.scope, spec.key, cause); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s failure: %w", spec.name, err)
	}
	return cause
}

func (s *PointsService) replay(spec commandSpec, prior *models.IdempotencyRecord) (*models.PointsResult, error) {
	idempotentReplays.WithLabelValues(spec.scope).Inc()

	if prior.Status == models.IdempotencyFailed {
		return nil, decodeErrorBody(prior.ErrorBody)
	}

	var result models.PointsResult
	if err := json.Unmarshal(prior.ResponseBody, &result); err != nil {
		return nil, fmt.Errorf("decode stored %s response: %w", spec.name, err)
	}
	result.Replayed = true
	return &result, nil
}

// lockAccount resolves the owner's account, takes its row lock and reads the
// aggregates under that lock. With create unset a missing account yields
// ErrAccountNotFound.
func (s *PointsService) lockAccount(ctx context.Context, tx *sql.Tx, tenantID, ownerType, ownerID string, create bool) (*models.Account, models.Aggregates, error) {
	var (
		account *models.Account
		err     error
	)
	if create {
		account, err = s.accounts.FindOrCreate(ctx, tx, tenantID, ownerType, ownerID)
	} else {
		account, err = s.accounts.Find(ctx, tx, tenantID, ownerType, ownerID)
	}
	if err != nil {
		return nil, models.Aggregates{}, err
	}

	if err := s.accounts.LockForUpdate(ctx, tx, tenantID, account.ID); err != nil {
		return nil, models.Aggregates{}, err
	}

	agg, err := s.ledger.Aggregates(ctx, tx, tenantID, account.ID)
	if err != nil {
		return nil, models.Aggregates{}, err
	}
	return account, agg, nil
}

func (s *PointsService) appendEntry(ctx context.Context, tx *sql.Tx, account *models.Account, entryType models.EntryType,
	amount int64, reasonCode, referenceType, referenceID, idempotencyKey string, metadata map[string]string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{
		TenantID:      account.TenantID,
		AccountID:     account.ID,
		EntryType:     entryType,
		Amount:        amount,
		ReasonCode:    reasonCode,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     s.now(),
	}
	if idempotencyKey != "" {
		entry.IdempotencyKey = &idempotencyKey
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		entry.Metadata = raw
	}

	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

type pointsEvent struct {
	AccountID     string           `json:"accountId"`
	OwnerType     string           `json:"ownerType"`
	OwnerID       string           `json:"ownerId"`
	EntryID       string           `json:"entryId,omitempty"`
	EntryType     models.EntryType `json:"entryType,omitempty"`
	HoldID        string           `json:"holdId,omitempty"`
	Amount        int64            `json:"amount"`
	ReferenceType string           `json:"referenceType,omitempty"`
	ReferenceID   string           `json:"referenceId,omitempty"`
	Balance       models.Balance   `json:"balance"`
}

func (s *PointsService) emit(ctx context.Context, tx *sql.Tx, account *models.Account, eventType string,
	payload pointsEvent, reasonCode, idempotencyKey string) error {
	payload.AccountID = account.ID
	payload.OwnerType = account.OwnerType
	payload.OwnerID = account.OwnerID

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	metadata := map[string]string{"reasonCode": reasonCode}
	if idempotencyKey != "" {
		metadata["idempotencyKey"] = idempotencyKey
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	return s.outbox.Append(ctx, tx, &models.OutboxEvent{
		TenantID:      account.TenantID,
		AggregateType: AggregateTypeAccount,
		AggregateID:   account.ID,
		EventType:     eventType,
		Payload:       body,
		Metadata:      meta,
		CreatedAt:     s.now(),
	})
}

// Credit adds points to the owner's balance, creating the account on first use.
func (s *PointsService) Credit(ctx context.Context, cmd PointsCommand) (*models.PointsResult, error) {
	if err := s.validator.ValidateCommand(&cmd); err != nil {
		return nil, err
	}

	spec := commandSpec{
		name: "credit", scope: ScopeCredit, tenantID: cmd.TenantID,
		ownerType: cmd.OwnerType, ownerID: cmd.OwnerID, key: cmd.IdempotencyKey, request: cmd,
	}
	return s.execute(ctx, spec, func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error) {
		account, agg, err := s.lockAccount(ctx, tx, cmd.TenantID, cmd.OwnerType, cmd.OwnerID, true)
		if err != nil {
			return nil, err
		}

		entry, err := s.appendEntry(ctx, tx, account, models.EntryCredit, cmd.Amount, cmd.ReasonCode,
			cmd.ReferenceType, cmd.ReferenceID, cmd.IdempotencyKey, nil)
		if err != nil {
			return nil, err
		}

		agg.Credits += cmd.Amount
		balance := CalculateBalance(agg)

		if err := s.emit(ctx, tx, account, EventCredited, pointsEvent{
			EntryID: entry.ID, EntryType: entry.EntryType, Amount: cmd.Amount,
			ReferenceType: cmd.ReferenceType, ReferenceID: cmd.ReferenceID, Balance: balance,
		}, cmd.ReasonCode, cmd.IdempotencyKey); err != nil {
			return nil, err
		}

		return &models.PointsResult{AccountID: account.ID, EntryID: entry.ID, Balance: &balance}, nil
	})
}

// Debit removes points when the available balance covers the amount.
func (s *PointsService) Debit(ctx context.Context, cmd PointsCommand) (*models.PointsResult, error) {
	if err := s.validator.ValidateCommand(&cmd); err != nil {
		return nil, err
	}

	spec := commandSpec{
		name: "debit", scope: ScopeDebit, tenantID: cmd.TenantID,
		ownerType: cmd.OwnerType, ownerID: cmd.OwnerID, key: cmd.IdempotencyKey, request: cmd,
	}
	return s.execute(ctx, spec, func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error) {
		account, agg, err := s.lockAccount(ctx, tx, cmd.TenantID, cmd.OwnerType, cmd.OwnerID, true)
		if err != nil {
			return nil, err
		}

		if available := CalculateBalance(agg).Available; available < cmd.Amount {
			return nil, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientFunds, available, cmd.Amount)
		}

		entry, err := s.appendEntry(ctx, tx, account, models.EntryDebit, cmd.Amount, cmd.ReasonCode,
			cmd.ReferenceType, cmd.ReferenceID, cmd.IdempotencyKey, nil)
		if err != nil {
			return nil, err
		}

		agg.Debits += cmd.Amount
		balance := CalculateBalance(agg)

		if err := s.emit(ctx, tx, account, EventDebited, pointsEvent{
			EntryID: entry.ID, EntryType: entry.EntryType, Amount: cmd.Amount,
			ReferenceType: cmd.ReferenceType, ReferenceID: cmd.ReferenceID, Balance: balance,
		}, cmd.ReasonCode, cmd.IdempotencyKey); err != nil {
			return nil, err
		}

		return &models.PointsResult{AccountID: account.ID, EntryID: entry.ID, Balance: &balance}, nil
	})
}

// Hold reserves points against a reference. Repeating an ACTIVE hold with
// the same amount returns it unchanged.
func (s *PointsService) Hold(ctx context.Context, cmd HoldCommand) (*models.PointsResult, error) {
	if err := s.validator.ValidateCommand(&cmd); err != nil {
		return nil, err
	}

	spec := commandSpec{
		name: "hold", scope: ScopeHold, tenantID: cmd.TenantID,
		ownerType: cmd.OwnerType, ownerID: cmd.OwnerID, key: cmd.IdempotencyKey, request: cmd,
	}
	return s.execute(ctx, spec, func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error) {
		account, agg, err := s.lockAccount(ctx, tx, cmd.TenantID, cmd.OwnerType, cmd.OwnerID, true)
		if err != nil {
			return nil, err
		}

		existing, err := s.holds.FindByReference(ctx, tx, cmd.TenantID, account.ID, cmd.ReferenceType, cmd.ReferenceID)
		switch {
		case err == nil && existing.Status == models.HoldActive:
			if existing.Amount != cmd.Amount {
				return nil, fmt.Errorf("%w: held %d, requested %d", ErrHoldConflict, existing.Amount, cmd.Amount)
			}
			balance := CalculateBalance(agg)
			return &models.PointsResult{
				AccountID: account.ID, HoldID: existing.ID, Status: existing.Status, Balance: &balance,
			}, nil
		case err == nil:
			return nil, fmt.Errorf("%w: %s/%s is %s", ErrHoldResolved, cmd.ReferenceType, cmd.ReferenceID, existing.Status)
		case !errors.Is(err, ErrHoldNotFound):
			return nil, err
		}

		if available := CalculateBalance(agg).Available; available < cmd.Amount {
			return nil, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientFunds, available, cmd.Amount)
		}

		hold := &models.Hold{
			TenantID:      cmd.TenantID,
			AccountID:     account.ID,
			Amount:        cmd.Amount,
			ReferenceType: cmd.ReferenceType,
			ReferenceID:   cmd.ReferenceID,
			ExpiresAt:     cmd.ExpiresAt,
		}
		if err := s.holds.Create(ctx, tx, hold); err != nil {
			return nil, err
		}

		entry, err := s.appendEntry(ctx, tx, account, models.EntryHold, cmd.Amount, cmd.ReasonCode,
			cmd.ReferenceType, cmd.ReferenceID, cmd.IdempotencyKey, map[string]string{"holdId": hold.ID})
		if err != nil {
			return nil, err
		}

		agg.ActiveHolds += cmd.Amount
		balance := CalculateBalance(agg)

		if err := s.emit(ctx, tx, account, EventHeld, pointsEvent{
			EntryID: entry.ID, EntryType: entry.EntryType, HoldID: hold.ID, Amount: cmd.Amount,
			ReferenceType: cmd.ReferenceType, ReferenceID: cmd.ReferenceID, Balance: balance,
		}, cmd.ReasonCode, cmd.IdempotencyKey); err != nil {
			return nil, err
		}

		return &models.PointsResult{
			AccountID: account.ID, HoldID: hold.ID, EntryID: entry.ID, Status: hold.Status, Balance: &balance,
		}, nil
	})
}

// CommitHold consumes the ACTIVE hold of the reference.
func (s *PointsService) CommitHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error) {
	return s.resolveHold(ctx, cmd, holdResolution{
		name: "commit", scope: ScopeCommit, next: models.HoldCommitted,
		entryType: models.EntryCommit, defaultReason: ReasonHoldCommitted, eventType: EventHoldCommitted,
	})
}

// ReleaseHold returns the ACTIVE hold's amount to the available balance.
func (s *PointsService) ReleaseHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error) {
	return s.resolveHold(ctx, cmd, holdResolution{
		name: "release", scope: ScopeRelease, next: models.HoldReleased,
		entryType: models.EntryRelease, defaultReason: ReasonHoldReleased, eventType: EventHoldReleased,
	})
}

// ExpireHold releases an ACTIVE hold whose expiry has passed. The reason code
// is always HOLD_EXPIRED.
func (s *PointsService) ExpireHold(ctx context.Context, cmd HoldResolutionCommand) (*models.PointsResult, error) {
	cmd.ReasonCode = ReasonHoldExpired
	return s.resolveHold(ctx, cmd, holdResolution{
		name: "expire", scope: ScopeExpire, next: models.HoldExpired,
		entryType: models.EntryRelease, defaultReason: ReasonHoldExpired, eventType: EventHoldExpired,
	})
}

type holdResolution struct {
	name          string
	scope         string
	next          models.HoldStatus
	entryType     models.EntryType
	defaultReason string
	eventType     string
}

func (s *PointsService) resolveHold(ctx context.Context, cmd HoldResolutionCommand, res holdResolution) (*models.PointsResult, error) {
	if err := s.validator.ValidateCommand(&cmd); err != nil {
		return nil, err
	}
	if cmd.ReasonCode == "" {
		cmd.ReasonCode = res.defaultReason
	}

	spec := commandSpec{
		name: res.name, scope: res.scope, tenantID: cmd.TenantID,
		ownerType: cmd.OwnerType, ownerID: cmd.OwnerID, key: cmd.IdempotencyKey, request: cmd,
	}
	return s.execute(ctx, spec, func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error) {
		account, agg, err := s.lockAccount(ctx, tx, cmd.TenantID, cmd.OwnerType, cmd.OwnerID, false)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrHoldNotFound
		}
		if err != nil {
			return nil, err
		}

		hold, err := s.holds.FindByReference(ctx, tx, cmd.TenantID, account.ID, cmd.ReferenceType, cmd.ReferenceID)
		if err != nil {
			return nil, err
		}
		if hold.Status != models.HoldActive {
			return nil, fmt.Errorf("%w: %w", ErrHoldNotFound, ErrHoldResolved)
		}
		if res.next == models.HoldExpired && (hold.ExpiresAt == nil || hold.ExpiresAt.After(s.now())) {
			return nil, ErrHoldNotDue
		}

		if err := s.holds.Transition(ctx, tx, hold, res.next); err != nil {
			return nil, err
		}

		entry, err := s.appendEntry(ctx, tx, account, res.entryType, hold.Amount, cmd.ReasonCode,
			hold.ReferenceType, hold.ReferenceID, cmd.IdempotencyKey, map[string]string{"holdId": hold.ID})
		if err != nil {
			return nil, err
		}

		agg.ActiveHolds -= hold.Amount
		if res.entryType == models.EntryCommit {
			agg.Commits += hold.Amount
		}
		balance := CalculateBalance(agg)

		if err := s.emit(ctx, tx, account, res.eventType, pointsEvent{
			EntryID: entry.ID, EntryType: entry.EntryType, HoldID: hold.ID, Amount: hold.Amount,
			ReferenceType: hold.ReferenceType, ReferenceID: hold.ReferenceID, Balance: balance,
		}, cmd.ReasonCode, cmd.IdempotencyKey); err != nil {
			return nil, err
		}

		return &models.PointsResult{
			AccountID: account.ID, HoldID: hold.ID, EntryID: entry.ID, Status: hold.Status, Balance: &balance,
		}, nil
	})
}

// Reverse offsets a DEBIT or COMMIT entry with a REVERSAL of the same amount.
// An entry can be reversed once.
func (s *PointsService) Reverse(ctx context.Context, cmd ReverseCommand) (*models.PointsResult, error) {
	if err := s.validator.ValidateCommand(&cmd); err != nil {
		return nil, err
	}

	spec := commandSpec{
		name: "reverse", scope: ScopeReverse, tenantID: cmd.TenantID,
		ownerType: cmd.OwnerType, ownerID: cmd.OwnerID, key: cmd.IdempotencyKey, request: cmd,
	}
	return s.execute(ctx, spec, func(ctx context.Context, tx *sql.Tx) (*models.PointsResult, error) {
		if _, err := uuid.Parse(cmd.EntryID); err != nil {
			return nil, ErrEntryNotFound
		}

		account, agg, err := s.lockAccount(ctx, tx, cmd.TenantID, cmd.OwnerType, cmd.OwnerID, false)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrEntryNotFound
		}
		if err != nil {
			return nil, err
		}

		original, err := s.ledger.Find(ctx, tx, cmd.TenantID, account.ID, cmd.EntryID)
		if err != nil {
			return nil, err
		}
		if !original.EntryType.Reversible() {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotReversible, original.EntryType)
		}

		reversed, err := s.ledger.HasReversal(ctx, tx, cmd.TenantID, account.ID, original.ID)
		if err != nil {
			return nil, err
		}
		if reversed {
			return nil, ErrAlreadyReversed
		}

		entry, err := s.appendEntry(ctx, tx, account, models.EntryReversal, original.Amount, cmd.ReasonCode,
			ReversalReferenceType, original.ID, cmd.IdempotencyKey,
			map[string]string{"reversedEntryType": string(original.EntryType)})
		if err != nil {
			return nil, err
		}

		agg.Reversals += original.Amount
		balance := CalculateBalance(agg)

		if err := s.emit(ctx, tx, account, EventReversed, pointsEvent{
			EntryID: entry.ID, EntryType: entry.EntryType, Amount: original.Amount,
			ReferenceType: ReversalReferenceType, ReferenceID: original.ID, Balance: balance,
		}, cmd.ReasonCode, cmd.IdempotencyKey); err != nil {
			return nil, err
		}

		return &models.PointsResult{AccountID: account.ID, EntryID: entry.ID, Balance: &balance}, nil
	})
}

// GetBalance derives the owner's balance without locking. Owners without an
// account have a zero balance.
func (s *PointsService) GetBalance(ctx context.Context, tenantID, ownerType, ownerID string) (models.Balance, error) {
	if tenantID == "" || ownerType == "" || ownerID == "" {
		return models.Balance{}, ErrMissingField
	}

	if cached, ok := s.cache.Get(ctx, tenantID, ownerType, ownerID); ok {
		return *cached, nil
	}
	generation, cacheable := s.cache.Generation(ctx, tenantID, ownerType, ownerID)

	account, err := s.accounts.Find(ctx, s.db, tenantID, ownerType, ownerID)
	if errors.Is(err, ErrAccountNotFound) {
		return models.Balance{}, nil
	}
	if err != nil {
		return models.Balance{}, err
	}

	agg, err := s.ledger.Aggregates(ctx, s.db, tenantID, account.ID)
	if err != nil {
		return models.Balance{}, err
	}

	balance := CalculateBalance(agg)
	if cacheable {
		s.cache.Set(ctx, tenantID, ownerType, ownerID, generation, balance)
	}
	return balance, nil
}

// maxStatementOffset bounds (page-1)*pageSize so the OFFSET cannot overflow.
const maxStatementOffset = math.MaxInt32

// ListStatement returns a page of the owner's entries, newest first.
func (s *PointsService) ListStatement(ctx context.Context, query StatementQuery) (*models.StatementPage, error) {
	if query.TenantID == "" || query.OwnerType == "" || query.OwnerID == "" {
		return nil, ErrMissingField
	}

	filter, err := buildStatementFilter(query.Filter)
	if err != nil {
		return nil, err
	}

	page := max(query.Page, 1)
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.StatementDefaultPageSize
	}
	pageSize = max(min(pageSize, s.cfg.StatementMaxPageSize), 1)
	if page-1 > maxStatementOffset/pageSize {
		return nil, fmt.Errorf("%w: page %d is out of range", ErrInvalidFilter, page)
	}

	result := &models.StatementPage{Entries: []models.LedgerEntry{}, Page: page, PageSize: pageSize}

	account, err := s.accounts.Find(ctx, s.db, query.TenantID, query.OwnerType, query.OwnerID)
	if errors.Is(err, ErrAccountNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	entries, total, err := s.ledger.Statement(ctx, s.db, query.TenantID, account.ID, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	result.Entries = entries
	result.Total = total
	return result, nil
}

func buildStatementFilter(in StatementFilterInput) (models.StatementFilter, error) {
	filter := models.StatementFilter{
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		From:          in.From,
		To:            in.To,
	}
	for _, raw := range in.EntryTypes {
		entryType := models.EntryType(raw)
		if !entryType.Valid() {
			return models.StatementFilter{}, fmt.Errorf("%w: unknown entry type %q", ErrInvalidFilter, raw)
		}
		filter.EntryTypes = append(filter.EntryTypes, entryType)
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return models.StatementFilter{}, fmt.Errorf("%w: from must be before to", ErrInvalidFilter)
	}
	return filter, nil
}

const (
	defaultExpiredHoldLimit = 100
	maxExpiredHoldLimit     = 1000
)

// ListExpiredHolds returns ACTIVE holds past expiry for the external reaper.
func (s *PointsService) ListExpiredHolds(ctx context.Context, tenantID string, before time.Time, limit int) ([]models.Hold, error) {
	if tenantID == "" {
		return nil, ErrMissingField
	}
	if before.IsZero() {
		before = s.now()
	}
	if limit <= 0 {
		limit = defaultExpiredHoldLimit
	}
	limit = min(limit, maxExpiredHoldLimit)

	return s.holds.ListExpired(ctx, s.db, tenantID, before, limit)
}

// PurgeIdempotencyRecords deletes idempotency records expired at or before the cutoff.
func (s *PointsService) PurgeIdempotencyRecords(ctx context.Context, before time.Time) (int64, error) {
	purged, err := s.idempotency.PurgeExpired(ctx, s.db, before)
	if err != nil {
		return 0, err
	}
	s.logger.Info("purged idempotency records", zap.Int64("count", purged), zap.Time("before", before))
	return purged, nil
}

// DispatchOutbox hands up to limit pending events to publish and marks the
// delivered ones. Delivery stops at the first publish error; events after it
// stay pending.
func (s *PointsService) DispatchOutbox(ctx context.Context, limit int, publish func(context.Context, models.OutboxEvent) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox dispatch: %w", err)
	}
	defer tx.Rollback()

	events, err := s.outbox.ListPending(ctx, tx, limit)
	if err != nil {
		return 0, err
	}

	var (
		delivered  []string
		publishErr error
	)
	for _, event := range events {
		if publishErr = publish(ctx, event); publishErr != nil {
			s.logger.Warn("outbox publish failed",
				zap.String("event_id", event.ID), zap.String("event_type", event.EventType), zap.Error(publishErr))
			break
		}
		delivered = append(delivered, event.ID)
	}

	if err := s.outbox.MarkDispatched(ctx, tx, delivered); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox dispatch: %w", err)
	}
	return len(delivered), publishErr
}
