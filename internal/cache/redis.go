package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// RedisCache backs swap history, the live feed, reserve snapshots and prices.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr string, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection so other stores (flags) can share it.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) AddRecentAttempt(ctx context.Context, attempt *models.SwapAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent attempt: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentAttempts(ctx context.Context, limit int64) ([]*models.SwapAttempt, error) {
	if limit <= 0 || limit > constants.MaxRecentSwaps {
		limit = constants.MaxRecentSwaps
	}
	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent attempts: %w", err)
	}

	out := make([]*models.SwapAttempt, 0, len(vals))
	for _, v := range vals {
		var a models.SwapAttempt
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			r.logger.WithError(err).Warn("skipping malformed attempt in recent list")
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *RedisCache) GetReserves(ctx context.Context, key string) (*models.PairReserves, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyReservesPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reserves: %w", err)
	}
	var res models.PairReserves
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, fmt.Errorf("unmarshal reserves: %w", err)
	}
	return &res, nil
}

func (r *RedisCache) SetReserves(ctx context.Context, key string, res *models.PairReserves, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal reserves: %w", err)
	}
	if err := r.client.Set(ctx, constants.RedisKeyReservesPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set reserves: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, chainID uint64, token string) (decimal.Decimal, bool, error) {
	val, err := r.client.Get(ctx, priceKey(chainID, token)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get price: %w", err)
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse cached price %q: %w", val, err)
	}
	return price, true, nil
}

func (r *RedisCache) SetPrice(ctx context.Context, chainID uint64, token string, price decimal.Decimal, ttl time.Duration) error {
	if err := r.client.Set(ctx, priceKey(chainID, token), price.String(), ttl).Err(); err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func priceKey(chainID uint64, token string) string {
	return fmt.Sprintf("%s%d:%s", constants.RedisKeyPricePrefix, chainID, strings.ToLower(token))
}
