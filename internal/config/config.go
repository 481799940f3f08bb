package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Chain settings
	ChainID       uint64
	RPCUrl        string
	WalletRPCUrl  string // EIP-5792 wallet endpoint (wallet_sendCalls)
	PaymasterURL  string
	SlippageBps   uint16
	SwapDeadline  time.Duration
	Debounce      time.Duration
	ReserveTTL    time.Duration
	PriceCacheTTL time.Duration

	// Aggregator settings
	KyberswapBaseURL  string
	KyberswapClientID string

	// Price feed
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// AI
	OpenRouterAPIKey string

	// HTTP client settings
	HTTPTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// Chain
		ChainID:       getUintEnv("CHAIN_ID", 8453),
		RPCUrl:        getEnv("ETH_RPC_URL", "https://mainnet.base.org"),
		WalletRPCUrl:  getEnv("WALLET_RPC_URL", ""),
		PaymasterURL:  getEnv("PAYMASTER_URL", ""),
		SlippageBps:   uint16(getUintEnv("SLIPPAGE_BPS", 50)),
		SwapDeadline:  getDurationEnv("SWAP_DEADLINE", 20*time.Minute),
		Debounce:      getDurationEnv("AMOUNT_DEBOUNCE", 500*time.Millisecond),
		ReserveTTL:    getDurationEnv("RESERVE_CACHE_TTL", 6*time.Second),
		PriceCacheTTL: getDurationEnv("PRICE_CACHE_TTL", time.Minute),

		// Aggregator
		KyberswapBaseURL:  getEnv("KYBERSWAP_BASE_URL", "https://aggregator-api.kyberswap.com"),
		KyberswapClientID: getEnv("KYBERSWAP_CLIENT_ID", "evm-swap-engine"),

		// Prices
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  getEnv("COINGECKO_API_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "swaps"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),

		// HTTP
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 12*time.Second),
	}
}

// Validate checks the settings every binary depends on.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("CHAIN_ID is required")
	}
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("ETH_RPC_URL is required")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be < 10000, got %d", c.SlippageBps)
	}
	if c.SwapDeadline <= 0 {
		return fmt.Errorf("SWAP_DEADLINE must be positive")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("AMOUNT_DEBOUNCE must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getUintEnv(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
