package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

const createAttemptsTable = `
	CREATE TABLE IF NOT EXISTS swap_attempts (
		id String,
		batch_id String,
		timestamp DateTime64(3),
		chain_id UInt64,
		account String,
		pair String,
		token_in String,
		token_out String,
		amount_in String,
		amount_out String,
		exact_side LowCardinality(String),
		strategy LowCardinality(String),
		approval Bool,
		status LowCardinality(String),
		error String
	) ENGINE = MergeTree
	ORDER BY (chain_id, timestamp)
`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(context.Background(), createAttemptsTable); err != nil {
		return nil, fmt.Errorf("failed to create swap_attempts table: %w", err)
	}

	cfg.Logger.WithField("database", cfg.Database).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertAttempt(ctx context.Context, a *models.SwapAttempt) error {
	query := `
		INSERT INTO swap_attempts (
			id, batch_id, timestamp, chain_id, account, pair, token_in, token_out,
			amount_in, amount_out, exact_side, strategy, approval, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		a.ID,
		a.BatchID,
		a.Timestamp,
		a.ChainID,
		a.Account,
		a.Pair,
		a.TokenIn,
		a.TokenOut,
		a.AmountIn,
		a.AmountOut,
		a.ExactSide,
		a.Strategy,
		a.Approval,
		string(a.Status),
		a.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
