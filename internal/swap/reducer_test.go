package swap

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

func TestReduce_EditAmountEntersQuoting(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	assert.Equal(t, PhaseIdle, s.Phase)

	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1.5"})
	assert.Equal(t, PhaseQuoting, s.Phase)
	assert.True(t, s.Loading)
	assert.False(t, s.Active.IsZero())
	assert.Equal(t, "1500000000000000000", s.Amount.Raw.String())
	assert.Equal(t, "…", s.OutputDisplay(), "derived side shows a placeholder, not zero")

	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: ""})
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Loading)
	assert.True(t, s.Active.IsZero())
}

func TestReduce_InvalidAmount(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, SelectToken{Field: FieldIn, Token: token(t, "USDC")})
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1.0000001"})

	assert.Equal(t, PhaseError, s.Phase)
	assert.ErrorIs(t, s.Err, ErrInvalidAmount)
	assert.Equal(t, "Enter a valid amount.", s.Message())
	assert.Equal(t, s, Reduce(s, Refresh{}), "refresh ignores an unparseable amount")
}

func TestReduce_QuoteResolvedOnlyForActiveKey(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	stale := s.Active

	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "2"})
	require.NotEqual(t, stale, s.Active)

	q := &Quote{Input: s.Amount, Output: models.NewTokenAmount(s.TokenOut, big.NewInt(1))}
	after := Reduce(s, QuoteResolved{Key: stale, Quote: q})
	assert.Equal(t, s, after)

	after = Reduce(s, QuoteResolved{Key: s.Active, Quote: q})
	assert.Equal(t, PhaseReady, after.Phase)
	assert.False(t, after.Loading)
	assert.Equal(t, s.Revision+1, after.Revision)
}

func TestReduce_QuoteFailedPhases(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})

	cases := []struct {
		err   error
		phase Phase
		is    error
	}{
		{amm.ErrNoReserves, PhaseNoRoute, ErrNoPairData},
		{amm.ErrInsufficientLiquidity, PhaseNoRoute, ErrInsufficientLiquidity},
		{errors.New("502 bad gateway"), PhaseError, ErrQuoteFetchFailed},
		{ErrExactOutUnsupported, PhaseError, ErrExactOutUnsupported},
	}
	for _, tc := range cases {
		got := Reduce(s, QuoteFailed{Key: s.Active, Err: tc.err})
		assert.Equal(t, tc.phase, got.Phase, tc.err.Error())
		assert.ErrorIs(t, got.Err, tc.is)
		assert.False(t, got.Loading)
		assert.NotEmpty(t, got.Message())
	}
}

func TestReduce_ReenterQuotingFromSettledPhases(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	noRoute := Reduce(s, QuoteFailed{Key: s.Active, Err: amm.ErrNoReserves})
	require.Equal(t, PhaseNoRoute, noRoute.Phase)

	next := Reduce(noRoute, EditAmount{Side: amm.ExactIn, Typed: "2"})
	assert.Equal(t, PhaseQuoting, next.Phase)
	assert.Nil(t, next.Err)

	next = Reduce(noRoute, SelectToken{Field: FieldOut, Token: token(t, "DAI")})
	assert.Equal(t, PhaseQuoting, next.Phase)
}

func TestReduce_SelectSameTokenSwapsSides(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	in, out := s.TokenIn, s.TokenOut

	s = Reduce(s, SelectToken{Field: FieldIn, Token: out})
	assert.True(t, s.TokenIn.Equals(out))
	assert.True(t, s.TokenOut.Equals(in))
}

func TestReduce_SelectTokenResetsTypedSide(t *testing.T) {
	usdc, dai := token(t, "USDC"), token(t, "DAI")

	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	require.Equal(t, PhaseQuoting, s.Phase)

	in := Reduce(s, SelectToken{Field: FieldIn, Token: usdc})
	assert.True(t, in.TokenIn.Equals(usdc))
	assert.Empty(t, in.Typed)
	assert.True(t, in.Amount.IsZero())
	assert.True(t, in.Amount.Token.Equals(usdc))
	assert.Equal(t, PhaseIdle, in.Phase)
	assert.True(t, in.Active.IsZero())

	out := Reduce(s, SelectToken{Field: FieldOut, Token: dai})
	assert.True(t, out.TokenOut.Equals(dai))
	assert.Equal(t, "1", out.Typed)
	assert.Equal(t, s.Amount.Raw.String(), out.Amount.Raw.String())
	assert.Equal(t, PhaseQuoting, out.Phase)
	assert.NotEqual(t, s.Active, out.Active)

	exactOut := Reduce(s, EditAmount{Side: amm.ExactOut, Typed: "2"})
	cleared := Reduce(exactOut, SelectToken{Field: FieldOut, Token: dai})
	assert.Empty(t, cleared.Typed)
	assert.True(t, cleared.Amount.IsZero())
	assert.Equal(t, PhaseIdle, cleared.Phase)

	kept := Reduce(exactOut, SelectToken{Field: FieldIn, Token: dai})
	assert.Equal(t, "2", kept.Typed)
	assert.Equal(t, PhaseQuoting, kept.Phase)
}

func TestReduce_SwitchSidesKeepsTypedToken(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	eth := s.TokenIn

	s = Reduce(s, SwitchSides{})
	assert.Equal(t, amm.ExactOut, s.Side)
	assert.True(t, s.TokenOut.Equals(eth))
	assert.True(t, s.Amount.Token.Equals(eth))
	assert.Equal(t, "1", s.OutputDisplay())
	assert.Equal(t, PhaseQuoting, s.Phase)
}

func TestReduce_SwitchChainResetsPair(t *testing.T) {
	s := NewState(baseChain(t), ModeSimple)
	s = Reduce(s, SetAccount{Account: testAccount})
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})

	s = Reduce(s, SwitchChain{ChainID: constants.BaseSepolia})
	sepolia, err := constants.ChainByID(constants.BaseSepolia)
	require.NoError(t, err)
	assert.Equal(t, constants.BaseSepolia, s.ChainID)
	assert.True(t, s.TokenIn.Equals(sepolia.DefaultIn))
	assert.True(t, s.TokenOut.Equals(sepolia.DefaultOut))
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, testAccount, s.Account)
	assert.Equal(t, ModeSimple, s.Mode)

	assert.Equal(t, s, Reduce(s, SwitchChain{ChainID: 1}), "unsupported chain is ignored")
}

func TestReduce_SubmittingIgnoresEdits(t *testing.T) {
	s := readyState(t)
	s = Reduce(s, SubmitStarted{Key: s.Active})
	require.Equal(t, PhaseSubmitting, s.Phase)

	assert.Equal(t, s, Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "5"}))
	assert.Equal(t, s, Reduce(s, SwitchSides{}))
	assert.Equal(t, s, Reduce(s, Dismiss{}))
}

func TestReduce_SubmitSettled(t *testing.T) {
	s := readyState(t)
	s = Reduce(s, SubmitStarted{Key: s.Active})

	ok := Reduce(s, SubmitSettled{Key: s.Active, BatchID: "0x1"})
	assert.Equal(t, PhaseSuccess, ok.Phase)
	assert.False(t, ok.Loading)
	assert.Empty(t, ok.Typed)
	assert.True(t, ok.Amount.IsZero())
	assert.Equal(t, "0x1", ok.BatchID)

	failed := Reduce(s, SubmitSettled{Key: s.Active, Err: errors.New("user rejected")})
	assert.Equal(t, PhaseFailed, failed.Phase)
	assert.False(t, failed.Loading)
	assert.ErrorIs(t, failed.Err, ErrSubmissionFailed)
	assert.Equal(t, "1", failed.Typed, "amount survives a failed submission")

	idle := Reduce(ok, Dismiss{})
	assert.Equal(t, PhaseIdle, idle.Phase)
}

func TestReduce_ApprovalFailureBlocksSubmit(t *testing.T) {
	s := NewState(baseChain(t), ModeDetailed)
	s = Reduce(s, SetAccount{Account: testAccount})
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	key := s.Active

	s = Reduce(s, ApprovalCheckFailed{Key: key, Err: errors.New("rpc down")})
	s = Reduce(s, QuoteResolved{Key: key, Quote: &Quote{Input: s.Amount, Output: models.NewTokenAmount(s.TokenOut, big.NewInt(1))}})

	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, ApprovalFailed, s.Approval)
	assert.ErrorIs(t, s.Err, ErrApprovalCheckFailed)
	assert.False(t, s.CanSubmit())
	assert.Equal(t, s, Reduce(s, SubmitStarted{Key: key}))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "NO_ROUTE", PhaseNoRoute.String())
	assert.Equal(t, "SUBMITTING", PhaseSubmitting.String())
}
