package amm

import (
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

var (
	ErrNoReserves            = errors.New("no reserves")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoRoute               = errors.New("no route")
)

// CalcInput is everything the trade calculator needs for one pair.
type CalcInput struct {
	Chain    constants.Chain
	Reserves *models.PairReserves
	TokenIn  models.Token
	TokenOut models.Token
	Amount   models.TokenAmount // authoritative side
	Side     Side
	MaxHops  int
}

// Calculate prices the authoritative amount against the pair's reserves.
// Native tokens are mapped to the wrapped ERC-20 for the math; the returned
// trade's amounts carry the caller's tokens again.
//
// Errors: ErrNoReserves when there is no pair data (or both sides resolve to
// the same token), ErrInsufficientLiquidity when the pool cannot fill the
// amount, anything else wrapped with its message.
func Calculate(in CalcInput) (*Trade, error) {
	if in.Reserves == nil {
		return nil, ErrNoReserves
	}
	wrappedIn := in.Chain.Wrap(in.TokenIn)
	wrappedOut := in.Chain.Wrap(in.TokenOut)
	if wrappedIn.Equals(wrappedOut) {
		return nil, ErrNoReserves
	}

	want := in.TokenIn
	if in.Side == ExactOut {
		want = in.TokenOut
	}
	if !in.Amount.Token.Equals(want) {
		return nil, fmt.Errorf("amount token %s does not match %s side", in.Amount.Token, in.Side)
	}
	if in.Amount.IsZero() {
		return nil, fmt.Errorf("trade calculation: %w", ErrInsufficientInputAmount)
	}

	feeBps := in.Chain.FeeBps
	pair, err := PairFromReserves(in.Reserves, wrappedIn, wrappedOut, feeBps)
	if err != nil {
		return nil, fmt.Errorf("trade calculation: %w", err)
	}

	maxHops := in.MaxHops
	if maxHops <= 0 {
		maxHops = constants.MaxHops
	}

	var trades []*Trade
	switch in.Side {
	case ExactIn:
		trades, err = BestTradeExactIn([]Pair{pair}, models.NewTokenAmount(wrappedIn, in.Amount.Raw), wrappedOut, maxHops)
	default:
		trades, err = BestTradeExactOut([]Pair{pair}, wrappedIn, models.NewTokenAmount(wrappedOut, in.Amount.Raw), maxHops)
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientLiquidity) {
			return nil, ErrInsufficientLiquidity
		}
		return nil, fmt.Errorf("trade calculation: %w", err)
	}

	best := trades[0]
	out := *best
	out.InputAmount = models.NewTokenAmount(in.TokenIn, best.InputAmount.Raw)
	out.OutputAmount = models.NewTokenAmount(in.TokenOut, best.OutputAmount.Raw)
	return &out, nil
}
