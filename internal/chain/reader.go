package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// ErrNoPair means the factory has no pool for the token pair.
var ErrNoPair = errors.New("no pair exists")

// Reader performs the read-only contract calls the swap flow needs.
type Reader struct {
	caller  ethereum.ContractCaller
	chainID uint64
	logger  *logrus.Logger
}

// ReaderConfig holds configuration for the contract reader
type ReaderConfig struct {
	Caller  ethereum.ContractCaller
	ChainID uint64
	Logger  *logrus.Logger
}

func NewReader(cfg ReaderConfig) (*Reader, error) {
	if cfg.Caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Reader{caller: cfg.Caller, chainID: cfg.ChainID, logger: cfg.Logger}, nil
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return client, nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: empty result", method, to.Hex())
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// GetPair asks the factory for the pair address of two ERC-20 tokens.
func (r *Reader) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	values, err := r.call(ctx, FactoryABI, factory, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("getPair: unexpected result type %T", values[0])
	}
	if pair == (common.Address{}) {
		return common.Address{}, ErrNoPair
	}
	return pair, nil
}

// GetReserves reads getReserves/token0/token1 from a pair contract.
func (r *Reader) GetReserves(ctx context.Context, pair common.Address) (*models.PairReserves, error) {
	values, err := r.call(ctx, PairABI, pair, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	ts, ok2 := values[2].(uint32)
	if !ok0 || !ok1 || !ok2 {
		return nil, fmt.Errorf("getReserves: unexpected result types %T/%T/%T", values[0], values[1], values[2])
	}

	token0, err := r.address(ctx, pair, "token0")
	if err != nil {
		return nil, err
	}
	token1, err := r.address(ctx, pair, "token1")
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"pair":     pair.Hex(),
		"reserve0": reserve0.String(),
		"reserve1": reserve1.String(),
	}).Debug("fetched reserves")

	return &models.PairReserves{
		ChainID:            r.chainID,
		Address:            pair,
		Token0:             token0,
		Token1:             token1,
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: ts,
		FetchedAt:          time.Now(),
	}, nil
}

// Token0 reads the pair's token0, which fixes the reserve ordering.
func (r *Reader) Token0(ctx context.Context, pair common.Address) (common.Address, error) {
	return r.address(ctx, pair, "token0")
}

func (r *Reader) address(ctx context.Context, pair common.Address, method string) (common.Address, error) {
	values, err := r.call(ctx, PairABI, pair, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return addr, nil
}

// Allowance reads allowance(owner, spender) on an ERC-20 token.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := r.call(ctx, ERC20ABI, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance: unexpected result type %T", values[0])
	}
	return v, nil
}

// Decimals reads decimals() on an ERC-20 token.
func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	values, err := r.call(ctx, ERC20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected result type %T", values[0])
	}
	return v, nil
}

// Symbol reads symbol() on an ERC-20 token.
func (r *Reader) Symbol(ctx context.Context, token common.Address) (string, error) {
	values, err := r.call(ctx, ERC20ABI, token, "symbol")
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result type %T", values[0])
	}
	return v, nil
}

// ResolveToken builds a token descriptor from on-chain metadata.
func (r *Reader) ResolveToken(ctx context.Context, address common.Address) (models.Token, error) {
	decimals, err := r.Decimals(ctx, address)
	if err != nil {
		return models.Token{}, err
	}
	symbol, err := r.Symbol(ctx, address)
	if err != nil {
		return models.Token{}, err
	}
	return models.NewToken(r.chainID, address, decimals, symbol, symbol), nil
}
