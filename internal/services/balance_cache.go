package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/pointsledger/internal/models"
	"go.uber.org/zap"
)

// generationTTL outlives any balance read, so a generation never resets
// while a reader still holds it.
const generationTTL = 24 * time.Hour

// storeIfCurrent writes the balance only while the owner's generation still
// matches the one read before the balance was queried.
const storeIfCurrent = `
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1`

// BalanceCache is a read-through cache for GetBalance. A nil client
// disables caching.
//
// Every mutating command bumps the owner's generation after its transaction
// commits, then drops the cached balance. Readers capture the generation
// before querying and store their result only if it is unchanged, so a read
// that raced a commit never repopulates the cache with a stale balance.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewBalanceCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl, logger: logger}
}

// ownerKey length-prefixes each part so ids containing ':' cannot collide.
func ownerKey(tenantID, ownerType, ownerID string) string {
	return fmt.Sprintf("%d:%s:%d:%s:%d:%s",
		len(tenantID), tenantID, len(ownerType), ownerType, len(ownerID), ownerID)
}

func balanceCacheKey(tenantID, ownerType, ownerID string) string {
	return "points:balance:" + ownerKey(tenantID, ownerType, ownerID)
}

func balanceGenerationKey(tenantID, ownerType, ownerID string) string {
	return "points:balance:gen:" + ownerKey(tenantID, ownerType, ownerID)
}

// Get returns the cached balance. Redis failures are logged and reported as misses.
func (c *BalanceCache) Get(ctx context.Context, tenantID, ownerType, ownerID string) (*models.Balance, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, balanceCacheKey(tenantID, ownerType, ownerID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("balance cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		balanceCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var balance models.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		balanceCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	balanceCacheTotal.WithLabelValues("hit").Inc()
	return &balance, true
}

// Generation returns the owner's current generation. ok is false when the
// cache is disabled or unreachable, and the result must then not be stored.
func (c *BalanceCache) Generation(ctx context.Context, tenantID, ownerType, ownerID string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}

	generation, err := c.client.Get(ctx, balanceGenerationKey(tenantID, ownerType, ownerID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		c.logger.Warn("balance generation read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return "", false
	}
	return generation, true
}

// Set stores balance unless a command committed since generation was read.
func (c *BalanceCache) Set(ctx context.Context, tenantID, ownerType, ownerID, generation string, balance models.Balance) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(balance)
	if err != nil {
		return
	}

	stored, err := c.client.Eval(ctx, storeIfCurrent,
		[]string{balanceGenerationKey(tenantID, ownerType, ownerID), balanceCacheKey(tenantID, ownerType, ownerID)},
		generation, string(raw), c.ttl.Milliseconds()).Int64()
	if err != nil {
		c.logger.Warn("balance cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	if stored == 0 {
		balanceCacheTotal.WithLabelValues("stale").Inc()
	}
}

// Invalidate bumps the owner's generation and drops the cached balance.
func (c *BalanceCache) Invalidate(ctx context.Context, tenantID, ownerType, ownerID string) {
	if c == nil || c.client == nil {
		return
	}

	genKey := balanceGenerationKey(tenantID, ownerType, ownerID)
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		c.logger.Warn("balance generation bump failed",
			zap.String("tenant_id", tenantID), zap.String("owner_id", ownerID), zap.Error(err))
	} else if err := c.client.Expire(ctx, genKey, generationTTL).Err(); err != nil {
		c.logger.Warn("balance generation expiry failed",
			zap.String("tenant_id", tenantID), zap.String("owner_id", ownerID), zap.Error(err))
	}

	if err := c.client.Del(ctx, balanceCacheKey(tenantID, ownerType, ownerID)).Err(); err != nil {
		c.logger.Warn("balance cache invalidation failed",
			zap.String("tenant_id", tenantID), zap.String("owner_id", ownerID), zap.Error(err))
	}
}
