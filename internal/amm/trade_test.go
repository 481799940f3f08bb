package amm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

var (
	tokA = models.NewToken(8453, common.HexToAddress("0x1000000000000000000000000000000000000001"), 18, "AAA", "A")
	tokB = models.NewToken(8453, common.HexToAddress("0x2000000000000000000000000000000000000002"), 18, "BBB", "B")
	tokC = models.NewToken(8453, common.HexToAddress("0x3000000000000000000000000000000000000003"), 6, "CCC", "C")
	tokD = models.NewToken(8453, common.HexToAddress("0x4000000000000000000000000000000000000004"), 18, "DDD", "D")
)

func amt(t models.Token, raw *big.Int) models.TokenAmount { return models.NewTokenAmount(t, raw) }

func TestNewPair_SortsTokens(t *testing.T) {
	p := NewPair(common.Address{}, amt(tokB, big.NewInt(5)), amt(tokA, big.NewInt(7)), 30)
	assert.True(t, p.Token0().Equals(tokA))
	assert.True(t, p.Token1().Equals(tokB))

	r, err := p.ReserveOf(tokA)
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.Raw.Int64())
	assert.True(t, p.Other(tokA).Equals(tokB))

	_, err = p.ReserveOf(tokC)
	assert.ErrorIs(t, err, ErrTokenNotInPair)
}

func TestBestTradeExactIn_PicksBetterRoute(t *testing.T) {
	direct := NewPair(common.HexToAddress("0x01"), amt(tokA, e18(100)), amt(tokC, big.NewInt(100_000_000)), 30)
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(1000)), 30)
	bc := NewPair(common.HexToAddress("0x03"), amt(tokB, e18(1000)), amt(tokC, big.NewInt(2_000_000_000)), 30)

	trades, err := BestTradeExactIn([]Pair{direct, ab, bc}, amt(tokA, e18(1)), tokC, 3)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	best := trades[0]
	assert.Len(t, best.Route.Pairs, 2, "two-hop route through B gives more C")
	assert.True(t, best.Route.Input().Equals(tokA))
	assert.True(t, best.Route.Output().Equals(tokC))
	assert.True(t, trades[0].OutputAmount.Raw.Cmp(trades[1].OutputAmount.Raw) > 0)
}

func TestBestTradeExactIn_RespectsMaxHops(t *testing.T) {
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(1000)), 30)
	bc := NewPair(common.HexToAddress("0x03"), amt(tokB, e18(1000)), amt(tokC, e18(1000)), 30)
	cd := NewPair(common.HexToAddress("0x04"), amt(tokC, e18(1000)), amt(tokD, e18(1000)), 30)

	_, err := BestTradeExactIn([]Pair{ab, bc, cd}, amt(tokA, e18(1)), tokD, 2)
	assert.ErrorIs(t, err, ErrNoRoute)

	trades, err := BestTradeExactIn([]Pair{ab, bc, cd}, amt(tokA, e18(1)), tokD, 3)
	require.NoError(t, err)
	assert.Len(t, trades[0].Route.Pairs, 3)
	assert.Len(t, trades[0].Route.Path, 4)
}

func TestBestTradeExactOut(t *testing.T) {
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(1000)), 30)

	trades, err := BestTradeExactOut([]Pair{ab}, tokA, amt(tokB, e18(10)), 3)
	require.NoError(t, err)
	best := trades[0]
	assert.Equal(t, ExactOut, best.Side)
	assert.Equal(t, e18(10).String(), best.OutputAmount.Raw.String())

	want, err := GetAmountIn(e18(10), e18(1000), e18(1000), 30)
	require.NoError(t, err)
	assert.Equal(t, want.String(), best.InputAmount.Raw.String())
}

func TestBestTradeExactOut_InsufficientLiquidity(t *testing.T) {
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(5)), 30)

	_, err := BestTradeExactOut([]Pair{ab}, tokA, amt(tokB, e18(5)), 3)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestTrade_SlippageBounds(t *testing.T) {
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(1000)), 30)
	route, err := NewRoute([]Pair{ab}, tokA)
	require.NoError(t, err)

	in, err := NewTradeExactIn(route, amt(tokA, big.NewInt(1_000_000)))
	require.NoError(t, err)
	assert.Equal(t, ApplySlippage(in.OutputAmount.Raw, 100).String(), in.MinimumOut(100).String())
	assert.Equal(t, "1000000", in.MaximumIn(100).String())

	out, err := NewTradeExactOut(route, amt(tokB, big.NewInt(1_000_000)))
	require.NoError(t, err)
	assert.Equal(t, "1000000", out.MinimumOut(100).String())
	assert.Equal(t, MaxAmountIn(out.InputAmount.Raw, 100).String(), out.MaximumIn(100).String())
}

func TestTrade_PriceImpactGrowsWithSize(t *testing.T) {
	ab := NewPair(common.HexToAddress("0x02"), amt(tokA, e18(1000)), amt(tokB, e18(1000)), 30)
	route, err := NewRoute([]Pair{ab}, tokA)
	require.NoError(t, err)

	small, err := NewTradeExactIn(route, amt(tokA, e18(1)))
	require.NoError(t, err)
	large, err := NewTradeExactIn(route, amt(tokA, e18(100)))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, small.PriceImpactBps, uint16(30))
	assert.Greater(t, large.PriceImpactBps, small.PriceImpactBps)
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("exactOut")
	require.NoError(t, err)
	assert.Equal(t, ExactOut, s)

	s, err = ParseSide("")
	require.NoError(t, err)
	assert.Equal(t, ExactIn, s)

	_, err = ParseSide("sideways")
	assert.Error(t, err)
}
