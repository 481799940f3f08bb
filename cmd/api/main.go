package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/ai"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/approval"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/chain"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/config"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/prices"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/server"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	history := cache.NewRedisCacheFromClient(rclient, logger)
	defer history.Close()

	flagStore, err := flags.NewStore(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}
	if err := flagStore.SeedDefaults(ctx, flags.Defaults); err != nil {
		logger.WithError(err).Warn("failed to seed default flags")
	}

	eth, err := chain.Dial(ctx, cfg.RPCUrl)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to chain rpc")
	}
	defer eth.Close()

	reader, err := chain.NewReader(chain.ReaderConfig{Caller: eth, ChainID: cfg.ChainID, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to create chain reader")
	}
	fetcher, err := reserves.NewFetcher(reserves.FetcherConfig{
		Reader: reader,
		Cache:  history,
		TTL:    cfg.ReserveTTL,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create reserve fetcher")
	}
	checker, err := approval.NewChecker(reader, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create approval checker")
	}
	priceService, err := prices.NewService(prices.ServiceConfig{
		Feed:   prices.NewCoinGecko(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, cfg.HTTPTimeout),
		Cache:  history,
		TTL:    cfg.PriceCacheTTL,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create price service")
	}

	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Logger:             logger,
	}

	h := &server.Handlers{
		ChainID:      cfg.ChainID,
		History:      history,
		Flags:        flagStore,
		AIBaseConfig: aiBase,
		Pairs:        fetcher,
		Aggregator:   kyberswap.NewClient(cfg.KyberswapBaseURL, cfg.KyberswapClientID, cfg.HTTPTimeout),
		Approvals:    checker,
		Prices:       priceService,
		Resolver:     reader,
		SlippageBps:  cfg.SlippageBps,
		Deadline:     cfg.SwapDeadline,
		Source:       cfg.KyberswapClientID,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	if cfg.OpenRouterAPIKey != "" {
		agent, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			h.AI = agent
			defer func() { _ = agent.Close() }()
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{"addr": cfg.APIAddr, "chain_id": cfg.ChainID}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
