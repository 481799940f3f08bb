package amm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

func baseChain(t *testing.T) constants.Chain {
	c, err := constants.ChainByID(constants.BaseMainnet)
	require.NoError(t, err)
	return c
}

// token sorting after WETH (0x4200...) so WETH is token0
var token = models.NewToken(constants.BaseMainnet, common.HexToAddress("0x9000000000000000000000000000000000000009"), 18, "TOKEN", "Token")

func wethTokenReserves(c constants.Chain, wethReserve, tokenReserve *big.Int) *models.PairReserves {
	return &models.PairReserves{
		ChainID:  c.ID,
		Address:  common.HexToAddress("0xabc0000000000000000000000000000000000abc"),
		Token0:   c.Wrapped.Address,
		Token1:   token.Address,
		Reserve0: wethReserve,
		Reserve1: tokenReserve,
	}
}

func TestCalculate_EthToTokenExactIn(t *testing.T) {
	c := baseChain(t)
	amountIn, err := models.ParseTokenAmount(c.Native, "1")
	require.NoError(t, err)

	trade, err := Calculate(CalcInput{
		Chain:    c,
		Reserves: wethTokenReserves(c, e18(10), e18(20000)),
		TokenIn:  c.Native,
		TokenOut: token,
		Amount:   amountIn,
		Side:     ExactIn,
	})
	require.NoError(t, err)

	// floor(20000 * 1*0.997 / (10 + 1*0.997)) in smallest units
	want := new(big.Int).Quo(new(big.Int).Mul(e18(20000), big.NewInt(997)), big.NewInt(10997))
	assert.Equal(t, want.String(), trade.OutputAmount.Raw.String())
	assert.True(t, trade.InputAmount.Token.Equals(c.Native), "trade carries the selected native token")
	assert.True(t, trade.OutputAmount.Token.Equals(token))
	assert.Equal(t, "TOKEN", trade.OutputAmount.Token.Symbol)
	assert.True(t, trade.Route.Input().Equals(c.Wrapped), "math runs on the wrapped token")
}

func TestCalculate_ExactOutRoundTrip(t *testing.T) {
	c := baseChain(t)
	res := wethTokenReserves(c, e18(10), e18(20000))

	in, err := Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: token, Amount: models.NewTokenAmount(c.Native, e18(1)), Side: ExactIn})
	require.NoError(t, err)

	out, err := Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: token, Amount: in.OutputAmount, Side: ExactOut})
	require.NoError(t, err)

	diff := new(big.Int).Sub(out.InputAmount.Raw, e18(1))
	assert.True(t, diff.CmpAbs(big.NewInt(2)) <= 0, "round trip drifted by %s", diff)
}

func TestCalculate_TokenToEthUsesReverseOrder(t *testing.T) {
	c := baseChain(t)
	res := wethTokenReserves(c, e18(10), e18(20000))

	trade, err := Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: token, TokenOut: c.Native, Amount: models.NewTokenAmount(token, e18(2000)), Side: ExactIn})
	require.NoError(t, err)

	want, err := GetAmountOut(e18(2000), e18(20000), e18(10), 30)
	require.NoError(t, err)
	assert.Equal(t, want.String(), trade.OutputAmount.Raw.String())
}

func TestCalculate_Errors(t *testing.T) {
	c := baseChain(t)
	res := wethTokenReserves(c, e18(10), e18(20000))

	_, err := Calculate(CalcInput{Chain: c, TokenIn: c.Native, TokenOut: token, Amount: models.NewTokenAmount(c.Native, e18(1))})
	assert.ErrorIs(t, err, ErrNoReserves)

	// ETH and WETH resolve to the same pool token: degenerate, unpriceable
	_, err = Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: c.Wrapped, Amount: models.NewTokenAmount(c.Native, e18(1))})
	assert.ErrorIs(t, err, ErrNoReserves)

	_, err = Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: token, Amount: models.NewTokenAmount(token, e18(20000)), Side: ExactOut})
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: c.DefaultOut, Amount: models.NewTokenAmount(c.Native, e18(1))})
	assert.ErrorIs(t, err, ErrTokenNotInPair)

	_, err = Calculate(CalcInput{Chain: c, Reserves: res, TokenIn: c.Native, TokenOut: token, Amount: models.NewTokenAmount(token, e18(1)), Side: ExactIn})
	assert.Error(t, err)
}
