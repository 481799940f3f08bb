package storage

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// SwapHistory defines the interface for the recent swap list and live feed
type SwapHistory interface {
	// AddRecentAttempt pushes an attempt onto the recent list
	AddRecentAttempt(ctx context.Context, attempt *models.SwapAttempt) error

	// GetRecentAttempts retrieves the most recent attempts, newest first
	GetRecentAttempts(ctx context.Context, limit int64) ([]*models.SwapAttempt, error)

	// PublishAttempt publishes an attempt on the live channel
	PublishAttempt(ctx context.Context, attempt *models.SwapAttempt) error

	// SubscribeAttempts subscribes to live attempts
	SubscribeAttempts(ctx context.Context) (<-chan *models.SwapAttempt, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// SwapStore defines the interface for persistent swap storage
type SwapStore interface {
	// InsertAttempt inserts a swap attempt into the store
	InsertAttempt(ctx context.Context, attempt *models.SwapAttempt) error

	Ping(ctx context.Context) error

	io.Closer
}

// ReserveCache keeps short-lived pair reserve snapshots keyed by pair identity.
// Get returns (nil, nil) on a miss.
type ReserveCache interface {
	GetReserves(ctx context.Context, key string) (*models.PairReserves, error)
	SetReserves(ctx context.Context, key string, r *models.PairReserves, ttl time.Duration) error
}

// PriceCache keeps USD prices keyed by chain and token. ok is false on a miss.
type PriceCache interface {
	GetPrice(ctx context.Context, chainID uint64, token string) (price decimal.Decimal, ok bool, err error)
	SetPrice(ctx context.Context, chainID uint64, token string, price decimal.Decimal, ttl time.Duration) error
}
