package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
)

type QuoteRequest struct {
	Chain    constants.Chain
	TokenIn  models.Token
	TokenOut models.Token
	Amount   models.TokenAmount
	Side     amm.Side
	// Fresh asks for reserves read from chain rather than a cache.
	Fresh bool
}

// Quoter prices a request. Implementations return taxonomy errors.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

// ReserveSource is satisfied by reserves.Fetcher.
type ReserveSource interface {
	Fetch(ctx context.Context, key reserves.Key) (*models.PairReserves, error)
}

// LocalQuoter prices against the chain's single constant-product pair.
type LocalQuoter struct {
	reserves ReserveSource
}

func NewLocalQuoter(src ReserveSource) *LocalQuoter {
	return &LocalQuoter{reserves: src}
}

func (q *LocalQuoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	res, err := q.reserves.Fetch(ctx, reserves.Key{
		ChainID: req.Chain.ID,
		TokenA:  req.TokenIn.Address,
		TokenB:  req.TokenOut.Address,
		Fresh:   req.Fresh,
	})
	if err != nil {
		return nil, quoteError(err)
	}

	trade, err := amm.Calculate(amm.CalcInput{
		Chain:    req.Chain,
		Reserves: res,
		TokenIn:  req.TokenIn,
		TokenOut: req.TokenOut,
		Amount:   req.Amount,
		Side:     req.Side,
	})
	if err != nil {
		return nil, quoteError(err)
	}

	return &Quote{
		Strategy:       StrategyAMM,
		Side:           req.Side,
		Input:          trade.InputAmount,
		Output:         trade.OutputAmount,
		Spender:        req.Chain.Router,
		PriceImpactBps: trade.PriceImpactBps,
		Trade:          trade,
	}, nil
}

// RouteFetcher is satisfied by kyberswap.Client.
type RouteFetcher interface {
	GetRoute(ctx context.Context, req kyberswap.RouteRequest) (*kyberswap.Route, error)
}

// AggregatorQuoter asks the route aggregator. It only quotes exact input.
type AggregatorQuoter struct {
	routes RouteFetcher
}

func NewAggregatorQuoter(routes RouteFetcher) *AggregatorQuoter {
	return &AggregatorQuoter{routes: routes}
}

func (q *AggregatorQuoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.Side == amm.ExactOut {
		return nil, ErrExactOutUnsupported
	}
	if req.Chain.Wrap(req.TokenIn).Equals(req.Chain.Wrap(req.TokenOut)) {
		return nil, fmt.Errorf("%w: identical tokens", ErrNoPairData)
	}

	route, err := q.routes.GetRoute(ctx, kyberswap.RouteRequest{
		Chain:    req.Chain.AggregatorKey,
		TokenIn:  req.TokenIn.Address.Hex(),
		TokenOut: req.TokenOut.Address.Hex(),
		AmountIn: req.Amount.Raw.String(),
	})
	if err != nil {
		return nil, quoteError(err)
	}

	out, ok := new(big.Int).SetString(route.Summary.AmountOut, 10)
	if !ok {
		return nil, quoteError(fmt.Errorf("malformed amountOut %q", route.Summary.AmountOut))
	}
	if out.Sign() == 0 {
		return nil, quoteError(amm.ErrInsufficientLiquidity)
	}

	spender := req.Chain.AggRouter
	if common.IsHexAddress(route.RouterAddress) {
		spender = common.HexToAddress(route.RouterAddress)
	}

	return &Quote{
		Strategy: StrategyAggregator,
		Side:     amm.ExactIn,
		Input:    models.NewTokenAmount(req.TokenIn, req.Amount.Raw),
		Output:   models.NewTokenAmount(req.TokenOut, out),
		Spender:  spender,
		Route:    route,
	}, nil
}
