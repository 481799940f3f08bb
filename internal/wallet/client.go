package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

const callsVersion = "2.0.0"

// Submitter hands batches to a wallet. The swap executor depends on this, not on Client.
type Submitter interface {
	SendCalls(ctx context.Context, from common.Address, chainID uint64, calls []Call, paymasterURL string) (string, error)
	GetCallsStatus(ctx context.Context, id string) (*CallsStatus, error)
}

type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Client speaks EIP-5792 to a wallet JSON-RPC endpoint. Keys never live here.
type Client struct {
	rpc    rpcCaller
	logger *logrus.Logger
}

type ClientConfig struct {
	URL    string
	Logger *logrus.Logger
}

func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("wallet: URL is required")
	}
	c, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial %s: %w", cfg.URL, err)
	}
	return NewClient(c, cfg.Logger), nil
}

// NewClient wraps an existing connection (an in-process server in tests).
func NewClient(c *rpc.Client, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{rpc: c, logger: logger}
}

// SendCalls submits calls as one atomic batch and returns the batch id.
func (c *Client) SendCalls(ctx context.Context, from common.Address, chainID uint64, calls []Call, paymasterURL string) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("wallet: empty batch")
	}
	req := SendCallsRequest{
		Version:        callsVersion,
		ChainID:        hexutil.Uint64(chainID),
		From:           from,
		AtomicRequired: true,
		Calls:          calls,
	}
	if paymasterURL != "" {
		req.Capabilities = &Capabilities{PaymasterService: &PaymasterService{URL: paymasterURL}}
	}

	// Older wallets return the id as a bare string.
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, "wallet_sendCalls", req); err != nil {
		return "", fmt.Errorf("wallet_sendCalls: %w", err)
	}
	id, err := parseBatchID(raw)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"batch":     id,
		"calls":     len(calls),
		"sponsored": paymasterURL != "",
	}).Info("batch submitted")
	return id, nil
}

func parseBatchID(raw json.RawMessage) (string, error) {
	var res SendCallsResult
	if err := json.Unmarshal(raw, &res); err == nil && res.ID != "" {
		return res.ID, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("wallet_sendCalls: unexpected result %s", string(raw))
}

func (c *Client) GetCallsStatus(ctx context.Context, id string) (*CallsStatus, error) {
	var status CallsStatus
	if err := c.rpc.CallContext(ctx, &status, "wallet_getCallsStatus", id); err != nil {
		return nil, fmt.Errorf("wallet_getCallsStatus: %w", err)
	}
	return &status, nil
}

// WaitForCalls polls until the batch settles or ctx is done.
func WaitForCalls(ctx context.Context, s Submitter, id string, interval time.Duration) (*CallsStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := s.GetCallsStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if status.Final() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Close() {
	c.rpc.Close()
}
