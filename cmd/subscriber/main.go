package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/config"
)

func main() {
	chainFilter := flag.Uint64("chain", 0, "only print attempts for this chain id (0 = all)")
	failedOnly := flag.Bool("failed", false, "only print failed attempts")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_, filename, _, _ := runtime.Caller(0)
	_ = godotenv.Load(filepath.Join(filepath.Dir(filename), "../..", ".env"))
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	history, err := cache.NewRedisCache(cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer history.Close()

	feed, err := history.SubscribeAttempts(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.Info("subscriber running, press Ctrl+C to stop")
	for a := range feed {
		if *chainFilter != 0 && a.ChainID != *chainFilter {
			continue
		}
		if *failedOnly && a.Error == "" {
			continue
		}
		entry := logger.WithFields(logrus.Fields{
			"chain":    a.ChainID,
			"pair":     a.Pair,
			"side":     a.ExactSide,
			"in":       a.AmountIn,
			"out":      a.AmountOut,
			"strategy": a.Strategy,
			"approval": a.Approval,
			"batch":    a.BatchID,
		})
		if a.Error != "" {
			entry.WithField("error", a.Error).Warn(string(a.Status))
			continue
		}
		entry.Info(string(a.Status))
	}
}
