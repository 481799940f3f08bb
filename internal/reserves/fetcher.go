package reserves

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/chain"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/storage"
)

var (
	// ErrNoPair means the factory has no pool for the pair (or both tokens
	// resolve to the same asset).
	ErrNoPair = errors.New("no pair for tokens")
	// ErrFetchFailed wraps transport and decode failures.
	ErrFetchFailed = errors.New("reserve fetch failed")
)

// PairReader is the subset of chain.Reader the fetcher uses.
type PairReader interface {
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	GetReserves(ctx context.Context, pair common.Address) (*models.PairReserves, error)
}

// Key identifies a pair lookup. Token order does not matter.
type Key struct {
	ChainID uint64
	TokenA  common.Address
	TokenB  common.Address
	// Fresh skips the cache read; the result still refreshes the cache.
	Fresh bool
}

// String is the canonical form: chain id plus the two (wrapped) addresses in pair order.
func (k Key) String() string {
	a, b := strings.ToLower(k.TokenA.Hex()), strings.ToLower(k.TokenB.Hex())
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%s:%s", k.ChainID, a, b)
}

type FetcherConfig struct {
	Reader PairReader
	Cache  storage.ReserveCache // optional
	TTL    time.Duration
	Logger *logrus.Logger
}

// Fetcher loads pair reserves for a token pair. Concurrent identical
// requests share one on-chain read; failures are returned, never retried.
type Fetcher struct {
	reader PairReader
	cache  storage.ReserveCache
	ttl    time.Duration
	group  singleflight.Group
	logger *logrus.Logger
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("pair reader is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Fetcher{reader: cfg.Reader, cache: cfg.Cache, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

// Fetch returns the reserves of the pair for key.
func (f *Fetcher) Fetch(ctx context.Context, key Key) (*models.PairReserves, error) {
	c, err := constants.ChainByID(key.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	key = Key{ChainID: key.ChainID, TokenA: wrap(c, key.TokenA), TokenB: wrap(c, key.TokenB), Fresh: key.Fresh}
	if key.TokenA == key.TokenB {
		return nil, ErrNoPair
	}

	id := key.String()
	flight := id
	if key.Fresh {
		flight += ":fresh"
	}
	v, err, shared := f.group.Do(flight, func() (interface{}, error) {
		return f.load(ctx, c, key, id)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.logger.WithField("pair", id).Debug("reserve fetch shared")
	}
	return v.(*models.PairReserves), nil
}

func (f *Fetcher) load(ctx context.Context, c constants.Chain, key Key, id string) (*models.PairReserves, error) {
	if f.cache != nil && f.ttl > 0 && !key.Fresh {
		cached, err := f.cache.GetReserves(ctx, id)
		if err != nil {
			f.logger.WithError(err).WithField("pair", id).Warn("reserve cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	pair, err := f.reader.GetPair(ctx, c.Factory, key.TokenA, key.TokenB)
	if errors.Is(err, chain.ErrNoPair) {
		return nil, ErrNoPair
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	res, err := f.reader.GetReserves(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if f.cache != nil && f.ttl > 0 {
		if err := f.cache.SetReserves(ctx, id, res, f.ttl); err != nil {
			f.logger.WithError(err).WithField("pair", id).Warn("reserve cache write failed")
		}
	}
	return res, nil
}

func wrap(c constants.Chain, addr common.Address) common.Address {
	if addr == models.NativeAddress {
		return c.Wrapped.Address
	}
	return addr
}
