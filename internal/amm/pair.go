package amm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

var ErrTokenNotInPair = errors.New("token not in pair")

// Pair is a two-asset constant-product pool with tokens in canonical order.
type Pair struct {
	Address  common.Address
	token0   models.Token
	token1   models.Token
	reserve0 *big.Int
	reserve1 *big.Int
	feeBps   uint16
}

// NewPair orders the two amounts the way the on-chain pair orders token0/token1.
func NewPair(address common.Address, a, b models.TokenAmount, feeBps uint16) Pair {
	if b.Token.SortsBefore(a.Token) {
		a, b = b, a
	}
	return Pair{
		Address:  address,
		token0:   a.Token,
		token1:   b.Token,
		reserve0: new(big.Int).Set(a.Raw),
		reserve1: new(big.Int).Set(b.Raw),
		feeBps:   feeBps,
	}
}

// PairFromReserves binds fetched reserves to the two ERC-20 token descriptors.
func PairFromReserves(r *models.PairReserves, a, b models.Token, feeBps uint16) (Pair, error) {
	if r == nil {
		return Pair{}, ErrNoReserves
	}
	ra := r.ReserveOf(a.Address)
	rb := r.ReserveOf(b.Address)
	if ra == nil || rb == nil {
		return Pair{}, fmt.Errorf("%w: pair %s holds %s/%s", ErrTokenNotInPair, r.Address.Hex(), r.Token0.Hex(), r.Token1.Hex())
	}
	return NewPair(r.Address, models.NewTokenAmount(a, ra), models.NewTokenAmount(b, rb), feeBps), nil
}

func (p Pair) Token0() models.Token { return p.token0 }
func (p Pair) Token1() models.Token { return p.token1 }
func (p Pair) FeeBps() uint16       { return p.feeBps }

func (p Pair) Involves(t models.Token) bool {
	return t.Equals(p.token0) || t.Equals(p.token1)
}

func (p Pair) ReserveOf(t models.Token) (models.TokenAmount, error) {
	switch {
	case t.Equals(p.token0):
		return models.NewTokenAmount(p.token0, p.reserve0), nil
	case t.Equals(p.token1):
		return models.NewTokenAmount(p.token1, p.reserve1), nil
	}
	return models.TokenAmount{}, ErrTokenNotInPair
}

// Other returns the token on the opposite side of t.
func (p Pair) Other(t models.Token) models.Token {
	if t.Equals(p.token0) {
		return p.token1
	}
	return p.token0
}

func (p Pair) reserves(in models.Token) (reserveIn, reserveOut *big.Int) {
	if in.Equals(p.token0) {
		return p.reserve0, p.reserve1
	}
	return p.reserve1, p.reserve0
}

// OutputAmount prices an exact input through this pair.
func (p Pair) OutputAmount(in models.TokenAmount) (models.TokenAmount, error) {
	if !p.Involves(in.Token) {
		return models.TokenAmount{}, ErrTokenNotInPair
	}
	reserveIn, reserveOut := p.reserves(in.Token)
	out, err := GetAmountOut(in.Raw, reserveIn, reserveOut, p.feeBps)
	if err != nil {
		return models.TokenAmount{}, err
	}
	if out.Sign() == 0 {
		return models.TokenAmount{}, ErrInsufficientInputAmount
	}
	return models.TokenAmount{Token: p.Other(in.Token), Raw: out}, nil
}

// InputAmount prices an exact output through this pair.
func (p Pair) InputAmount(out models.TokenAmount) (models.TokenAmount, error) {
	if !p.Involves(out.Token) {
		return models.TokenAmount{}, ErrTokenNotInPair
	}
	in := p.Other(out.Token)
	reserveIn, reserveOut := p.reserves(in)
	amountIn, err := GetAmountIn(out.Raw, reserveIn, reserveOut, p.feeBps)
	if err != nil {
		return models.TokenAmount{}, err
	}
	return models.TokenAmount{Token: in, Raw: amountIn}, nil
}
