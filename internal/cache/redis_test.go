package cache

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

func setupTestCache(t *testing.T) *RedisCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return NewRedisCacheFromClient(client, nil)
}

func TestRedisCache_RecentAttemptsNewestFirstAndTrimmed(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	total := constants.MaxRecentSwaps + 5
	for i := 0; i < total; i++ {
		require.NoError(t, c.AddRecentAttempt(ctx, &models.SwapAttempt{ID: fmt.Sprint(i), Status: models.AttemptSubmitted}))
	}

	got, err := c.GetRecentAttempts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fmt.Sprint(total-1), got[0].ID)

	all, err := c.GetRecentAttempts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, constants.MaxRecentSwaps)
}

func TestRedisCache_ReservesRoundTrip(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	miss, err := c.GetReserves(ctx, "8453:a:b")
	require.NoError(t, err)
	assert.Nil(t, miss)

	want := &models.PairReserves{
		ChainID:  8453,
		Address:  common.HexToAddress("0x88A43bbDF9D098eEC7bCEda4e2494615dfD9bB9C"),
		Token0:   common.HexToAddress("0x4200000000000000000000000000000000000006"),
		Token1:   common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb"),
		Reserve0: big.NewInt(10),
		Reserve1: new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
	}
	require.NoError(t, c.SetReserves(ctx, "8453:a:b", want, time.Minute))

	got, err := c.GetReserves(ctx, "8453:a:b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Token1, got.Token1)
	assert.Equal(t, 0, want.Reserve1.Cmp(got.Reserve1))
}

func TestRedisCache_PriceKeyIsCaseInsensitive(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, ok, err := c.GetPrice(ctx, 8453, "0xABC")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetPrice(ctx, 8453, "0xABC", decimal.RequireFromString("1.0003"), time.Minute))
	price, ok, err := c.GetPrice(ctx, 8453, "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.0003", price.String())

	_, ok, err = c.GetPrice(ctx, 84532, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_PublishSubscribe(t *testing.T) {
	c := setupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := c.SubscribeAttempts(ctx)
	require.NoError(t, err)

	require.NoError(t, c.PublishAttempt(ctx, &models.SwapAttempt{ID: "live", ChainID: 8453, Pair: "ETH/USDC"}))

	select {
	case a := <-feed:
		assert.Equal(t, "live", a.ID)
		assert.Equal(t, "ETH/USDC", a.Pair)
	case <-time.After(2 * time.Second):
		t.Fatal("attempt not received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-feed:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
