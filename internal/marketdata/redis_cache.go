package marketdata

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
)

const (
	redisKeyPrefix = "prices:"
	redisScanBatch = 500
)

// RedisConfig configures the Redis price cache.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// cachedPrice is the msgpack payload stored per key.
type cachedPrice struct {
	Price     string `msgpack:"p"`
	FetchedAt int64  `msgpack:"t"`
}

// RedisCache is a Cache shared by every API instance. Expiry is delegated
// to Redis key TTLs.
type RedisCache struct {
	client *goredis.Client
	prefix string
}

// NewRedisCache connects to Redis and pings the server.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Get().Infow("Price cache connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisCache{client: client, prefix: redisKeyPrefix}, nil
}

// Client returns the underlying Redis client for health checks.
func (c *RedisCache) Client() *goredis.Client { return c.client }

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

func encodePrice(price decimal.Decimal, fetchedAt time.Time) ([]byte, error) {
	return msgpack.Marshal(cachedPrice{Price: price.String(), FetchedAt: fetchedAt.UnixMilli()})
}

func decodePrice(raw []byte) (decimal.Decimal, error) {
	var entry cachedPrice
	if err := msgpack.Unmarshal(raw, &entry); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(entry.Price)
}

// Get returns the cached price for key. Redis errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Get().Warnw("Price cache read failed", "key", key, "error", err)
		}
		return decimal.Zero, false
	}
	price, err := decodePrice(raw)
	if err != nil {
		logger.Get().Warnw("Discarding undecodable cached price", "key", key, "error", err)
		return decimal.Zero, false
	}
	return price, true
}

// Put stores price under key with a Redis TTL of ttl.
func (c *RedisCache) Put(ctx context.Context, key string, price decimal.Decimal, ttl time.Duration) {
	raw, err := encodePrice(price, time.Now())
	if err != nil {
		logger.Get().Warnw("Price cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		logger.Get().Warnw("Price cache write failed", "key", key, "error", err)
	}
}

// Clear deletes every price key.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("scanning price keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting price keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
