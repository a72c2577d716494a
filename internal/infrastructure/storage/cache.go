package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

// Cache is a TTL key-value store consulted opportunistically on reads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on a redis server.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CachedStore decorates the sqlite store with read-through caching of the
// hot read paths (balances, trades). Writes invalidate. Cache failures fall
// back to the store; they are never fatal.
type CachedStore struct {
	*SQLiteStore
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(store *SQLiteStore, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		SQLiteStore: store,
		cache:       cache,
		ttl:         ttl,
		logger:      logger,
	}
}

const tradesCacheKey = "store:trades"

func balancesCacheKey(platform string) string {
	return "store:balances:" + platform
}

func (s *CachedStore) GetBalances(ctx context.Context, platform string) ([]domain.Balance, error) {
	key := balancesCacheKey(platform)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var balances []domain.Balance
		if err := json.Unmarshal(raw, &balances); err == nil {
			return balances, nil
		}
	}

	balances, err := s.SQLiteStore.GetBalances(ctx, platform)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, balances)
	return balances, nil
}

func (s *CachedStore) SaveBalances(ctx context.Context, platform string, balances []domain.Balance) error {
	if err := s.SQLiteStore.SaveBalances(ctx, platform, balances); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, balancesCacheKey(platform)); err != nil {
		s.logger.Debug("Cache invalidation failed", zap.String("platform", platform), zap.Error(err))
	}
	return nil
}

func (s *CachedStore) GetTrades(ctx context.Context) ([]domain.Trade, error) {
	if raw, ok, err := s.cache.Get(ctx, tradesCacheKey); err != nil {
		s.logger.Debug("Cache read failed", zap.String("key", tradesCacheKey), zap.Error(err))
	} else if ok {
		var trades []domain.Trade
		if err := json.Unmarshal(raw, &trades); err == nil {
			return trades, nil
		}
	}

	trades, err := s.SQLiteStore.GetTrades(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, tradesCacheKey, trades)
	return trades, nil
}

func (s *CachedStore) InsertTrades(ctx context.Context, trades []domain.Trade) error {
	if err := s.SQLiteStore.InsertTrades(ctx, trades); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, tradesCacheKey); err != nil {
		s.logger.Debug("Cache invalidation failed", zap.Error(err))
	}
	return nil
}

func (s *CachedStore) cacheSet(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
