package amm

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// Side says which amount of a trade the user fixed.
type Side int

const (
	ExactIn Side = iota
	ExactOut
)

func (s Side) String() string {
	if s == ExactOut {
		return "exactOut"
	}
	return "exactIn"
}

// ParseSide accepts "exactIn"/"exactOut" (and the aggregator's "ExactIn"/"ExactOut").
func ParseSide(s string) (Side, error) {
	switch s {
	case "", "exactIn", "ExactIn", "in":
		return ExactIn, nil
	case "exactOut", "ExactOut", "out":
		return ExactOut, nil
	}
	return ExactIn, fmt.Errorf("invalid side %q", s)
}

// Route is an ordered list of pairs connecting Path[0] to Path[len-1].
type Route struct {
	Pairs []Pair
	Path  []models.Token
}

func NewRoute(pairs []Pair, input models.Token) (Route, error) {
	if len(pairs) == 0 {
		return Route{}, errors.New("route needs at least one pair")
	}
	path := []models.Token{input}
	cur := input
	for _, p := range pairs {
		if !p.Involves(cur) {
			return Route{}, fmt.Errorf("%w: %s in %s", ErrTokenNotInPair, cur, p.Address.Hex())
		}
		cur = p.Other(cur)
		path = append(path, cur)
	}
	return Route{Pairs: append([]Pair(nil), pairs...), Path: path}, nil
}

func (r Route) Input() models.Token  { return r.Path[0] }
func (r Route) Output() models.Token { return r.Path[len(r.Path)-1] }

// MidPrice is the output-per-input price before any trade, as an exact ratio.
func (r Route) MidPrice() *big.Rat {
	price := big.NewRat(1, 1)
	for i, p := range r.Pairs {
		reserveIn, reserveOut := p.reserves(r.Path[i])
		if reserveIn.Sign() == 0 {
			return new(big.Rat)
		}
		price.Mul(price, new(big.Rat).SetFrac(reserveOut, reserveIn))
	}
	return price
}

// Trade is a priced route. Recomputed on every input change, never persisted.
type Trade struct {
	Route          Route
	Side           Side
	InputAmount    models.TokenAmount
	OutputAmount   models.TokenAmount
	PriceImpactBps uint16
}

func NewTradeExactIn(route Route, amountIn models.TokenAmount) (*Trade, error) {
	if !amountIn.Token.Equals(route.Input()) {
		return nil, fmt.Errorf("input %s does not start route", amountIn.Token)
	}
	cur := amountIn
	for _, p := range route.Pairs {
		out, err := p.OutputAmount(cur)
		if err != nil {
			return nil, err
		}
		cur = out
	}
	t := &Trade{Route: route, Side: ExactIn, InputAmount: amountIn, OutputAmount: cur}
	t.PriceImpactBps = priceImpactBps(route, amountIn.Raw, cur.Raw)
	return t, nil
}

func NewTradeExactOut(route Route, amountOut models.TokenAmount) (*Trade, error) {
	if !amountOut.Token.Equals(route.Output()) {
		return nil, fmt.Errorf("output %s does not end route", amountOut.Token)
	}
	cur := amountOut
	for i := len(route.Pairs) - 1; i >= 0; i-- {
		in, err := route.Pairs[i].InputAmount(cur)
		if err != nil {
			return nil, err
		}
		cur = in
	}
	t := &Trade{Route: route, Side: ExactOut, InputAmount: cur, OutputAmount: amountOut}
	t.PriceImpactBps = priceImpactBps(route, cur.Raw, amountOut.Raw)
	return t, nil
}

// MinimumOut is the output floor to encode for this trade.
func (t *Trade) MinimumOut(slippageBps uint16) *big.Int {
	if t.Side == ExactOut {
		return new(big.Int).Set(t.OutputAmount.Raw)
	}
	return ApplySlippage(t.OutputAmount.Raw, slippageBps)
}

// MaximumIn is the input ceiling to encode for this trade.
func (t *Trade) MaximumIn(slippageBps uint16) *big.Int {
	if t.Side == ExactIn {
		return new(big.Int).Set(t.InputAmount.Raw)
	}
	return MaxAmountIn(t.InputAmount.Raw, slippageBps)
}

func priceImpactBps(route Route, amountIn, amountOut *big.Int) uint16 {
	quoted := new(big.Rat).Mul(route.MidPrice(), new(big.Rat).SetInt(amountIn))
	if quoted.Sign() == 0 {
		return 0
	}
	diff := new(big.Rat).Sub(quoted, new(big.Rat).SetInt(amountOut))
	if diff.Sign() <= 0 {
		return 0
	}
	ratio := diff.Quo(diff, quoted)
	ratio.Mul(ratio, big.NewRat(bpsDenominator, 1))
	bps := new(big.Int).Quo(ratio.Num(), ratio.Denom())
	if bps.Cmp(big.NewInt(bpsDenominator)) > 0 {
		return bpsDenominator
	}
	return uint16(bps.Uint64())
}

// search state shared by the recursive route walk
type search struct {
	trades       []*Trade
	insufficient bool
}

func (s *search) note(err error) error {
	if errors.Is(err, ErrInsufficientReserves) || errors.Is(err, ErrInsufficientInputAmount) {
		s.insufficient = true
		return nil
	}
	return err
}

// BestTradeExactIn walks every route of at most maxHops pairs from amountIn's
// token to tokenOut and returns the trades ordered best first.
func BestTradeExactIn(pairs []Pair, amountIn models.TokenAmount, tokenOut models.Token, maxHops int) ([]*Trade, error) {
	if maxHops <= 0 {
		return nil, errors.New("maxHops must be positive")
	}
	s := &search{}
	if err := s.exactIn(pairs, amountIn, tokenOut, maxHops, nil, amountIn); err != nil {
		return nil, err
	}
	if len(s.trades) == 0 {
		if s.insufficient {
			return nil, ErrInsufficientLiquidity
		}
		return nil, ErrNoRoute
	}
	sort.SliceStable(s.trades, func(i, j int) bool {
		a, b := s.trades[i], s.trades[j]
		if c := a.OutputAmount.Raw.Cmp(b.OutputAmount.Raw); c != 0 {
			return c > 0
		}
		if a.PriceImpactBps != b.PriceImpactBps {
			return a.PriceImpactBps < b.PriceImpactBps
		}
		return len(a.Route.Pairs) < len(b.Route.Pairs)
	})
	return s.trades, nil
}

func (s *search) exactIn(pairs []Pair, cur models.TokenAmount, tokenOut models.Token, hops int, visited []Pair, original models.TokenAmount) error {
	for i, p := range pairs {
		if !p.Involves(cur.Token) {
			continue
		}
		out, err := p.OutputAmount(cur)
		if err != nil {
			if err := s.note(err); err != nil {
				return err
			}
			continue
		}
		path := append(append([]Pair(nil), visited...), p)
		if out.Token.Equals(tokenOut) {
			route, err := NewRoute(path, original.Token)
			if err != nil {
				return err
			}
			trade, err := NewTradeExactIn(route, original)
			if err != nil {
				if err := s.note(err); err != nil {
					return err
				}
				continue
			}
			s.trades = append(s.trades, trade)
		} else if hops > 1 && len(pairs) > 1 {
			rest := append(append([]Pair(nil), pairs[:i]...), pairs[i+1:]...)
			if err := s.exactIn(rest, out, tokenOut, hops-1, path, original); err != nil {
				return err
			}
		}
	}
	return nil
}

// BestTradeExactOut is the exact-output counterpart of BestTradeExactIn.
func BestTradeExactOut(pairs []Pair, tokenIn models.Token, amountOut models.TokenAmount, maxHops int) ([]*Trade, error) {
	if maxHops <= 0 {
		return nil, errors.New("maxHops must be positive")
	}
	s := &search{}
	if err := s.exactOut(pairs, tokenIn, amountOut, maxHops, nil, amountOut); err != nil {
		return nil, err
	}
	if len(s.trades) == 0 {
		if s.insufficient {
			return nil, ErrInsufficientLiquidity
		}
		return nil, ErrNoRoute
	}
	sort.SliceStable(s.trades, func(i, j int) bool {
		a, b := s.trades[i], s.trades[j]
		if c := a.InputAmount.Raw.Cmp(b.InputAmount.Raw); c != 0 {
			return c < 0
		}
		if a.PriceImpactBps != b.PriceImpactBps {
			return a.PriceImpactBps < b.PriceImpactBps
		}
		return len(a.Route.Pairs) < len(b.Route.Pairs)
	})
	return s.trades, nil
}

func (s *search) exactOut(pairs []Pair, tokenIn models.Token, cur models.TokenAmount, hops int, visited []Pair, original models.TokenAmount) error {
	for i, p := range pairs {
		if !p.Involves(cur.Token) {
			continue
		}
		in, err := p.InputAmount(cur)
		if err != nil {
			if err := s.note(err); err != nil {
				return err
			}
			continue
		}
		path := append([]Pair{p}, visited...)
		if in.Token.Equals(tokenIn) {
			route, err := NewRoute(path, tokenIn)
			if err != nil {
				return err
			}
			trade, err := NewTradeExactOut(route, original)
			if err != nil {
				if err := s.note(err); err != nil {
					return err
				}
				continue
			}
			s.trades = append(s.trades, trade)
		} else if hops > 1 && len(pairs) > 1 {
			rest := append(append([]Pair(nil), pairs[:i]...), pairs[i+1:]...)
			if err := s.exactOut(rest, tokenIn, in, hops-1, path, original); err != nil {
				return err
			}
		}
	}
	return nil
}
