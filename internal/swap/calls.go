package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/chain"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/wallet"
)

// RouteBuilder is satisfied by kyberswap.Client.
type RouteBuilder interface {
	BuildRoute(ctx context.Context, req kyberswap.BuildRequest) (*kyberswap.EncodedRoute, error)
}

type CallsInput struct {
	Chain            constants.Chain
	Account          common.Address
	Quote            *Quote
	ApprovalRequired bool
	SlippageBps      uint16
	Deadline         time.Time
	Source           string
}

// BuildCalls returns the ordered batch for a quote: the approval (when
// required) followed by the swap.
func BuildCalls(ctx context.Context, builder RouteBuilder, in CallsInput) ([]wallet.Call, error) {
	q := in.Quote
	if q == nil {
		return nil, fmt.Errorf("no quote")
	}
	if in.Account == (common.Address{}) {
		return nil, fmt.Errorf("no account")
	}

	var (
		swapCall wallet.Call
		spender  = q.Spender
		err      error
	)
	switch q.Strategy {
	case StrategyAMM:
		swapCall, err = routerCall(in)
	case StrategyAggregator:
		swapCall, err = aggregatorCall(ctx, builder, in)
		// The allowance was read against the quoted router.
		if err == nil && spender != (common.Address{}) && swapCall.To != spender {
			err = fmt.Errorf("aggregator router changed from %s to %s, re-quote", spender.Hex(), swapCall.To.Hex())
		}
		spender = swapCall.To
	default:
		err = fmt.Errorf("unknown strategy %q", q.Strategy)
	}
	if err != nil {
		return nil, err
	}

	calls := make([]wallet.Call, 0, 2)
	if in.ApprovalRequired && !q.Input.Token.IsNative() {
		data, err := chain.EncodeApprove(spender, q.ApprovalAmount(in.SlippageBps))
		if err != nil {
			return nil, fmt.Errorf("encode approve: %w", err)
		}
		calls = append(calls, wallet.Call{To: q.Input.Token.Address, Data: data, Value: (*hexutil.Big)(new(big.Int))})
	}
	return append(calls, swapCall), nil
}

func routerCall(in CallsInput) (wallet.Call, error) {
	q := in.Quote
	if q.Trade == nil {
		return wallet.Call{}, fmt.Errorf("amm quote without trade")
	}
	path := make([]common.Address, len(q.Trade.Route.Path))
	for i, t := range q.Trade.Route.Path {
		path[i] = t.Address
	}

	s := chain.RouterSwap{
		ExactOut:  q.Side == amm.ExactOut,
		NativeIn:  q.Input.Token.IsNative(),
		NativeOut: q.Output.Token.IsNative(),
		Path:      path,
		To:        in.Account,
		Deadline:  big.NewInt(in.Deadline.Unix()),
	}
	if s.ExactOut {
		s.Amount = q.Output.Raw
		s.Limit = q.Trade.MaximumIn(in.SlippageBps)
	} else {
		s.Amount = q.Input.Raw
		s.Limit = q.Trade.MinimumOut(in.SlippageBps)
	}

	data, value, err := chain.EncodeRouterSwap(s)
	if err != nil {
		return wallet.Call{}, fmt.Errorf("encode router swap: %w", err)
	}
	return wallet.Call{To: in.Chain.Router, Data: data, Value: (*hexutil.Big)(value)}, nil
}

func aggregatorCall(ctx context.Context, builder RouteBuilder, in CallsInput) (wallet.Call, error) {
	q := in.Quote
	if q.Route == nil {
		return wallet.Call{}, fmt.Errorf("aggregator quote without route")
	}
	if builder == nil {
		return wallet.Call{}, fmt.Errorf("no route builder configured")
	}

	enc, err := builder.BuildRoute(ctx, kyberswap.BuildRequest{
		Chain:       in.Chain.AggregatorKey,
		RawSummary:  q.Route.RawSummary,
		Sender:      in.Account.Hex(),
		Recipient:   in.Account.Hex(),
		SlippageBps: in.SlippageBps,
		Deadline:    in.Deadline.Unix(),
		Source:      in.Source,
	})
	if err != nil {
		return wallet.Call{}, fmt.Errorf("build route: %w", err)
	}

	data, err := hexutil.Decode(enc.Data)
	if err != nil {
		return wallet.Call{}, fmt.Errorf("route calldata: %w", err)
	}
	value := new(big.Int)
	if enc.TransactionValue != "" {
		if _, ok := value.SetString(enc.TransactionValue, 10); !ok {
			return wallet.Call{}, fmt.Errorf("route value %q is not an integer", enc.TransactionValue)
		}
	}
	to := in.Chain.AggRouter
	if common.IsHexAddress(enc.RouterAddress) {
		to = common.HexToAddress(enc.RouterAddress)
	}
	return wallet.Call{To: to, Data: data, Value: (*hexutil.Big)(value)}, nil
}
