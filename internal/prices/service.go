package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/storage"
)

// Feed is the upstream price source.
type Feed interface {
	TokenPrice(ctx context.Context, platform, contract string) (decimal.Decimal, error)
	CoinPrice(ctx context.Context, id string) (decimal.Decimal, error)
}

type ServiceConfig struct {
	Feed   Feed
	Cache  storage.PriceCache // optional
	TTL    time.Duration
	Logger *logrus.Logger
}

// Service resolves USD prices for tokens, read-through cached.
type Service struct {
	feed   Feed
	cache  storage.PriceCache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Feed == nil {
		return nil, fmt.Errorf("price feed is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return &Service{feed: cfg.Feed, cache: cfg.Cache, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

// USDPrice returns the USD price of one whole unit of token.
func (s *Service) USDPrice(ctx context.Context, token models.Token) (decimal.Decimal, error) {
	c, err := constants.ChainByID(token.ChainID)
	if err != nil {
		return decimal.Zero, err
	}
	key := token.Address.Hex()

	if s.cache != nil {
		price, ok, err := s.cache.GetPrice(ctx, token.ChainID, key)
		if err != nil {
			s.logger.WithError(err).WithField("token", token.Symbol).Warn("price cache read failed")
		} else if ok {
			return price, nil
		}
	}

	var price decimal.Decimal
	if token.IsNative() {
		price, err = s.feed.CoinPrice(ctx, c.NativePriceID)
	} else {
		price, err = s.feed.TokenPrice(ctx, c.PricePlatform, key)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price for %s: %w", token.Symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, token.ChainID, key, price, s.ttl); err != nil {
			s.logger.WithError(err).WithField("token", token.Symbol).Warn("price cache write failed")
		}
	}
	return price, nil
}

// USDValue converts a raw amount into its USD value, rounded to cents.
func USDValue(amount models.TokenAmount, price decimal.Decimal) decimal.Decimal {
	if amount.Raw == nil {
		return decimal.Zero
	}
	units := decimal.NewFromBigInt(amount.Raw, -int32(amount.Token.Decimals))
	return units.Mul(price).Round(2)
}

// Estimate values amount in USD, returning ok=false when no price is available.
func (s *Service) Estimate(ctx context.Context, amount models.TokenAmount) (decimal.Decimal, bool) {
	price, err := s.USDPrice(ctx, amount.Token)
	if err != nil {
		s.logger.WithError(err).Debug("usd estimate unavailable")
		return decimal.Zero, false
	}
	return USDValue(amount, price), true
}
