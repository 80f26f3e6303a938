package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/ruralpay/pointsledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBalanceCache(t *testing.T) {
	ctx := context.Background()
	key := balanceCacheKey(testTenant, testOwnerType, testOwnerID)
	genKey := balanceGenerationKey(testTenant, testOwnerType, testOwnerID)
	balance := models.Balance{Current: 100, Held: 30, Available: 70}
	raw, err := json.Marshal(balance)
	require.NoError(t, err)

	t.Run("hit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		mock.ExpectGet(key).SetVal(string(raw))

		got, ok := cache.Get(ctx, testTenant, testOwnerType, testOwnerID)
		assert.True(t, ok)
		assert.Equal(t, balance, *got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		mock.ExpectGet(key).RedisNil()

		_, ok := cache.Get(ctx, testTenant, testOwnerType, testOwnerID)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure is a miss", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		mock.ExpectGet(key).SetErr(errors.New("connection refused"))

		_, ok := cache.Get(ctx, testTenant, testOwnerType, testOwnerID)
		assert.False(t, ok)
	})

	t.Run("set stores while the generation is current", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		mock.ExpectGet(genKey).RedisNil()
		mock.ExpectEval(storeIfCurrent, []string{genKey, key}, "0", string(raw), int64(30000)).SetVal(int64(1))

		generation, ok := cache.Generation(ctx, testTenant, testOwnerType, testOwnerID)
		require.True(t, ok)
		assert.Equal(t, "0", generation)
		cache.Set(ctx, testTenant, testOwnerType, testOwnerID, generation, balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalidation between read and store rejects the stale balance", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		// reader captures the generation before querying the ledger
		mock.ExpectGet(genKey).SetVal("4")
		// a command commits and invalidates while the reader is querying
		mock.ExpectIncr(genKey).SetVal(5)
		mock.ExpectExpire(genKey, generationTTL).SetVal(true)
		mock.ExpectDel(key).SetVal(1)
		// the reader's store is conditioned on the generation it captured
		mock.ExpectEval(storeIfCurrent, []string{genKey, key}, "4", string(raw), int64(30000)).SetVal(int64(0))

		generation, ok := cache.Generation(ctx, testTenant, testOwnerType, testOwnerID)
		require.True(t, ok)
		cache.Invalidate(ctx, testTenant, testOwnerType, testOwnerID)
		cache.Set(ctx, testTenant, testOwnerType, testOwnerID, generation, balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreadable generation is not cacheable", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, 30*time.Second, zap.NewNop())

		mock.ExpectGet(genKey).SetErr(errors.New("connection refused"))

		_, ok := cache.Generation(ctx, testTenant, testOwnerType, testOwnerID)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil client disables caching", func(t *testing.T) {
		cache := NewBalanceCache(nil, 30*time.Second, zap.NewNop())

		_, ok := cache.Get(ctx, testTenant, testOwnerType, testOwnerID)
		assert.False(t, ok)
		_, ok = cache.Generation(ctx, testTenant, testOwnerType, testOwnerID)
		assert.False(t, ok)
		cache.Set(ctx, testTenant, testOwnerType, testOwnerID, "0", balance)
		cache.Invalidate(ctx, testTenant, testOwnerType, testOwnerID)
	})
}

func TestBalanceCacheKeys(t *testing.T) {
	assert.NotEqual(t,
		balanceCacheKey("t1:USER", "x", "owner-1"),
		balanceCacheKey("t1", "USER:x", "owner-1"))
	assert.NotEqual(t,
		balanceCacheKey("t1", "USER", "a:b"),
		balanceCacheKey("t1", "USER:a", "b"))
	assert.NotEqual(t,
		balanceCacheKey(testTenant, testOwnerType, testOwnerID),
		balanceGenerationKey(testTenant, testOwnerType, testOwnerID))
}

func TestPointsService_GetBalanceStoresWithGeneration(t *testing.T) {
	service, mock := newTestPointsService(t)
	client, redisMock := redismock.NewClientMock()
	service.cache = NewBalanceCache(client, 30*time.Second, zap.NewNop())

	key := balanceCacheKey(testTenant, testOwnerType, testOwnerID)
	genKey := balanceGenerationKey(testTenant, testOwnerType, testOwnerID)
	raw, err := json.Marshal(models.Balance{Current: 100, Held: 30, Available: 70})
	require.NoError(t, err)

	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectGet(genKey).SetVal("7")
	mock.ExpectQuery("SELECT id, tenant_id, owner_type, owner_id, created_at FROM points_accounts").
		WithArgs(testTenant, testOwnerType, testOwnerID).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(testAccountID, testTenant, testOwnerType, testOwnerID, time.Now()))
	mock.ExpectQuery("COALESCE\\(SUM\\(amount\\) FILTER").
		WithArgs(testTenant, testAccountID).
		WillReturnRows(sqlmock.NewRows(aggColumns).AddRow(100, 0, 0, 0, 30))
	redisMock.ExpectEval(storeIfCurrent, []string{genKey, key}, "7", string(raw), int64(30000)).SetVal(int64(0))

	balance, err := service.GetBalance(context.Background(), testTenant, testOwnerType, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 100, Held: 30, Available: 70}, balance)
	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsService_GetBalanceCached(t *testing.T) {
	service, mock := newTestPointsService(t)
	client, redisMock := redismock.NewClientMock()
	service.cache = NewBalanceCache(client, 30*time.Second, zap.NewNop())

	raw, err := json.Marshal(models.Balance{Current: 20, Available: 20})
	require.NoError(t, err)
	redisMock.ExpectGet(balanceCacheKey(testTenant, testOwnerType, testOwnerID)).SetVal(string(raw))

	balance, err := service.GetBalance(context.Background(), testTenant, testOwnerType, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Current: 20, Held: 0, Available: 20}, balance)
	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, mock.ExpectationsWereMet())
}
