package prices

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

var usdc = models.NewToken(8453, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), 6, "USDC", "USD Coin")

type memPrices struct {
	mu   sync.Mutex
	data map[string]decimal.Decimal
}

func (m *memPrices) GetPrice(ctx context.Context, chainID uint64, token string) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[token]
	return p, ok, nil
}

func (m *memPrices) SetPrice(ctx context.Context, chainID uint64, token string, price decimal.Decimal, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[token] = price
	return nil
}

func TestCoinGecko_TokenAndCoinPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/simple/token_price/base":
			assert.Equal(t, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", r.URL.Query().Get("contract_addresses"))
			_, _ = io.WriteString(w, `{"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913":{"usd":0.9998}}`)
		case "/simple/price":
			_, _ = io.WriteString(w, `{"ethereum":{"usd":3012.45}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", 0)
	p, err := cg.TokenPrice(context.Background(), "base", usdc.Address.Hex())
	require.NoError(t, err)
	assert.Equal(t, "0.9998", p.String())

	p, err = cg.CoinPrice(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "3012.45", p.String())

	_, err = cg.CoinPrice(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoPrice)
}

type countingFeed struct {
	calls int
}

func (f *countingFeed) TokenPrice(ctx context.Context, platform, contract string) (decimal.Decimal, error) {
	f.calls++
	return decimal.RequireFromString("1.0001"), nil
}

func (f *countingFeed) CoinPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	f.calls++
	return decimal.RequireFromString("3000"), nil
}

func TestService_CachesPrices(t *testing.T) {
	feed := &countingFeed{}
	svc, err := NewService(ServiceConfig{Feed: feed, Cache: &memPrices{data: map[string]decimal.Decimal{}}})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err := svc.USDPrice(context.Background(), usdc)
		require.NoError(t, err)
		assert.Equal(t, "1.0001", p.String())
	}
	assert.Equal(t, 1, feed.calls)
}

func TestService_NativeUsesCoinPrice(t *testing.T) {
	svc, err := NewService(ServiceConfig{Feed: &countingFeed{}})
	require.NoError(t, err)

	usd, ok := svc.Estimate(context.Background(), models.NewTokenAmount(models.NativeToken(8453, "ETH", "Ether"), big.NewInt(1_500_000_000_000_000_000)))
	require.True(t, ok)
	assert.Equal(t, "4500", usd.String())
}

func TestUSDValue(t *testing.T) {
	v := USDValue(models.NewTokenAmount(usdc, big.NewInt(12_345_678)), decimal.RequireFromString("0.9998"))
	assert.Equal(t, "12.34", v.String())
}
