//go:build integration

package services_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/ruralpay/pointsledger/internal/config"
	"github.com/ruralpay/pointsledger/internal/database"
	"github.com/ruralpay/pointsledger/internal/models"
	"github.com/ruralpay/pointsledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("points"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testDB, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	testDB.SetMaxOpenConns(40)

	if err := database.RunMigrations(testDB, "points", zap.NewNop()); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	code := m.Run()

	testDB.Close()
	container.Terminate(ctx)
	os.Exit(code)
}

func newIntegrationService() *services.PointsService {
	cfg := &config.LedgerConfig{
		IdempotencyTTL:           24 * time.Hour,
		BalanceCacheTTL:          time.Second,
		StatementDefaultPageSize: 50,
		StatementMaxPageSize:     200,
		CommandTimeout:           30 * time.Second,
	}
	return services.NewPointsService(testDB, services.NewBalanceCache(nil, 0, zap.NewNop()), cfg, zap.NewNop())
}

type owner struct {
	tenant, ownerType, ownerID string
}

func newOwner() owner {
	return owner{tenant: "tenant-" + uuid.NewString()[:8], ownerType: "USER", ownerID: uuid.NewString()}
}

func (o owner) points(amount int64, key string) services.PointsCommand {
	return services.PointsCommand{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		Amount: amount, ReasonCode: "TEST", IdempotencyKey: key,
	}
}

func (o owner) hold(amount int64, ref string) services.HoldCommand {
	return services.HoldCommand{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		Amount: amount, ReasonCode: "TEST", ReferenceType: "RESERVATION", ReferenceID: ref,
	}
}

func (o owner) resolution(ref string) services.HoldResolutionCommand {
	return services.HoldResolutionCommand{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		ReferenceType: "RESERVATION", ReferenceID: ref,
	}
}

func countEntries(t *testing.T, svc *services.PointsService, o owner, types ...string) int {
	t.Helper()
	page, err := svc.ListStatement(context.Background(), services.StatementQuery{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		Filter: services.StatementFilterInput{EntryTypes: types},
	})
	require.NoError(t, err)
	return page.Total
}

func TestIntegration_WorkedExample(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	balance, err := svc.GetBalance(ctx, o.tenant, o.ownerType, o.ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{}, balance)

	result, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 100, Held: 0, Available: 100}, *result.Balance)

	result, err = svc.Hold(ctx, o.hold(30, "R1"))
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 100, Held: 30, Available: 70}, *result.Balance)

	result, err = svc.Debit(ctx, o.points(50, ""))
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 50, Held: 30, Available: 20}, *result.Balance)

	result, err = svc.CommitHold(ctx, o.resolution("R1"))
	require.NoError(t, err)
	assert.Equal(t, models.HoldCommitted, result.Status)

	balance, err = svc.GetBalance(ctx, o.tenant, o.ownerType, o.ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 20, Held: 0, Available: 20}, balance)

	_, err = svc.ReleaseHold(ctx, o.resolution("R1"))
	assert.ErrorIs(t, err, services.ErrHoldResolved)

	assert.Equal(t, 4, countEntries(t, svc, o))
}

func TestIntegration_ConcurrentDebitsNeverOverspend(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)

	results := make([]error, 25)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = svc.Debit(ctx, o.points(10, ""))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)
	}
	assert.Equal(t, 10, succeeded)

	balance, err := svc.GetBalance(ctx, o.tenant, o.ownerType, o.ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{}, balance)
	assert.Equal(t, 10, countEntries(t, svc, o, "DEBIT"))
}

func TestIntegration_ConcurrentHoldsOnOneReference(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)

	holdIDs := make([]string, 10)
	var g errgroup.Group
	for i := range holdIDs {
		g.Go(func() error {
			result, err := svc.Hold(ctx, o.hold(30, "R1"))
			if err != nil {
				return err
			}
			holdIDs[i] = result.HoldID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range holdIDs {
		assert.Equal(t, holdIDs[0], id)
	}
	assert.Equal(t, 1, countEntries(t, svc, o, "HOLD"))

	balance, err := svc.GetBalance(ctx, o.tenant, o.ownerType, o.ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance.Held)

	_, err = svc.Hold(ctx, o.hold(40, "R1"))
	assert.ErrorIs(t, err, services.ErrHoldConflict)
}

func TestIntegration_IdempotentReplay(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	first, err := svc.Credit(ctx, o.points(100, "credit-1"))
	require.NoError(t, err)
	second, err := svc.Credit(ctx, o.points(100, "credit-1"))
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)

	firstBody, err := json.Marshal(first)
	require.NoError(t, err)
	secondBody, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstBody), string(secondBody))

	_, err = svc.Credit(ctx, o.points(200, "credit-1"))
	assert.ErrorIs(t, err, services.ErrIdempotencyConflict)

	assert.Equal(t, 1, countEntries(t, svc, o))
}

func TestIntegration_ConcurrentRetriesApplyOnce(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	var g errgroup.Group
	for range 10 {
		g.Go(func() error {
			_, err := svc.Credit(ctx, o.points(10, "retry-1"))
			if errors.Is(err, services.ErrIdempotencyInProgress) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, countEntries(t, svc, o))
}

func TestIntegration_FailedCommandKeepsOnlyMarker(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Debit(ctx, o.points(50, "debit-1"))
	require.ErrorIs(t, err, services.ErrInsufficientFunds)

	var status string
	err = testDB.QueryRowContext(ctx,
		`SELECT status FROM points_idempotency_records WHERE tenant_id = $1 AND scope = $2 AND key = $3`,
		o.tenant, services.ScopeDebit, "debit-1").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", status)

	_, err = svc.Debit(ctx, o.points(50, "debit-1"))
	assert.ErrorIs(t, err, services.ErrInsufficientFunds)

	var replayed *services.ReplayedError
	assert.ErrorAs(t, err, &replayed)
	assert.Equal(t, 0, countEntries(t, svc, o))
}

func TestIntegration_ResolvedHoldReplaysSameKinds(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)
	_, err = svc.Hold(ctx, o.hold(30, "R1"))
	require.NoError(t, err)
	_, err = svc.CommitHold(ctx, o.resolution("R1"))
	require.NoError(t, err)

	release := o.resolution("R1")
	release.IdempotencyKey = "release-1"
	for attempt := range 2 {
		_, err = svc.ReleaseHold(ctx, release)
		assert.ErrorIs(t, err, services.ErrHoldNotFound, "attempt %d", attempt)
		assert.ErrorIs(t, err, services.ErrHoldResolved, "attempt %d", attempt)
		assert.Equal(t, "HOLD_RESOLVED", services.ErrorCode(err), "attempt %d", attempt)
	}
}

func TestIntegration_ExpireAndReverse(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute).UTC()
	cmd := o.hold(40, "R-expiring")
	cmd.ExpiresAt = &past
	_, err = svc.Hold(ctx, cmd)
	require.NoError(t, err)

	expired, err := svc.ListExpiredHolds(ctx, o.tenant, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	result, err := svc.ExpireHold(ctx, o.resolution("R-expiring"))
	require.NoError(t, err)
	assert.Equal(t, models.HoldExpired, result.Status)
	assert.Equal(t, int64(100), result.Balance.Available)

	debit, err := svc.Debit(ctx, o.points(60, ""))
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, services.ReverseCommand{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		EntryID: debit.EntryID, ReasonCode: "REFUND",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), reversal.Balance.Current)

	_, err = svc.Reverse(ctx, services.ReverseCommand{
		TenantID: o.tenant, OwnerType: o.ownerType, OwnerID: o.ownerID,
		EntryID: debit.EntryID, ReasonCode: "REFUND",
	})
	assert.ErrorIs(t, err, services.ErrAlreadyReversed)
}

func TestIntegration_LedgerIsAppendOnly(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	result, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)

	_, err = testDB.ExecContext(ctx, `UPDATE points_ledger_entries SET amount = 1 WHERE id = $1`, result.EntryID)
	assert.Error(t, err)

	_, err = testDB.ExecContext(ctx, `DELETE FROM points_ledger_entries WHERE id = $1`, result.EntryID)
	assert.Error(t, err)
}

func TestIntegration_OutboxFollowsCommits(t *testing.T) {
	svc := newIntegrationService()
	ctx := context.Background()
	o := newOwner()

	_, err := svc.Credit(ctx, o.points(100, ""))
	require.NoError(t, err)
	_, err = svc.Debit(ctx, o.points(500, ""))
	require.ErrorIs(t, err, services.ErrInsufficientFunds)

	var count int
	err = testDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points_outbox_events WHERE tenant_id = $1`, o.tenant).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, fmt.Sprintf("only the credit emits for tenant %s", o.tenant))
}
