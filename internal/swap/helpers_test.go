package swap

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/wallet"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func baseChain(t *testing.T) constants.Chain {
	t.Helper()
	c, err := constants.ChainByID(constants.BaseMainnet)
	require.NoError(t, err)
	return c
}

func token(t *testing.T, symbol string) models.Token {
	t.Helper()
	tok, ok := baseChain(t).TokenBySymbol(symbol)
	require.True(t, ok, symbol)
	return tok
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// staticReserves serves one pair for every key.
type staticReserves struct {
	res *models.PairReserves
	err error
}

func (s *staticReserves) Fetch(ctx context.Context, key reserves.Key) (*models.PairReserves, error) {
	return s.res, s.err
}

// gatedQuoter echoes the requested amount 1:1 into the output token. A quote
// for an output token with a gate blocks until the gate is closed.
type gatedQuoter struct {
	mu    sync.Mutex
	gates map[common.Address]chan struct{}
	calls []QuoteRequest
	err   error
}

func newGatedQuoter() *gatedQuoter {
	return &gatedQuoter{gates: map[common.Address]chan struct{}{}}
}

func (g *gatedQuoter) gate(tok models.Token) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[tok.Address] = ch
	return ch
}

func (g *gatedQuoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	gate := g.gates[req.TokenOut.Address]
	err := g.err
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &Quote{
		Strategy: StrategyAMM,
		Side:     req.Side,
		Input:    models.NewTokenAmount(req.TokenIn, req.Amount.Raw),
		Output:   models.NewTokenAmount(req.TokenOut, req.Amount.Raw),
		Spender:  req.Chain.Router,
	}, nil
}

func (g *gatedQuoter) requests() []QuoteRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]QuoteRequest(nil), g.calls...)
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls [][]wallet.Call
	pm    []string
	err   error
}

func (f *fakeSubmitter) SendCalls(ctx context.Context, from common.Address, chainID uint64, calls []wallet.Call, paymasterURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, calls)
	f.pm = append(f.pm, paymasterURL)
	if f.err != nil {
		return "", f.err
	}
	return "0xbatch1", nil
}

func (f *fakeSubmitter) GetCallsStatus(ctx context.Context, id string) (*wallet.CallsStatus, error) {
	return &wallet.CallsStatus{ID: id, Status: wallet.StatusConfirmed}, nil
}

type fakeAllowances struct {
	mu       sync.Mutex
	value    *big.Int
	err      error
	spenders []common.Address
}

func (f *fakeAllowances) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spenders = append(f.spenders, spender)
	return f.value, f.err
}

func (f *fakeAllowances) checked() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.spenders...)
}

func waitFor(t *testing.T, s *Store, cond func(State) bool) State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(s.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return s.Snapshot()
}

// readyState is a READY state for 1 ETH -> USDC with a local quote.
func readyState(t *testing.T) State {
	t.Helper()
	c := baseChain(t)
	s := NewState(c, ModeDetailed)
	s = Reduce(s, SetAccount{Account: testAccount})
	s = Reduce(s, EditAmount{Side: amm.ExactIn, Typed: "1"})
	pair := amm.NewPair(common.HexToAddress("0x88A43bbDF9D098eEC7bCEda4e2494615dfD9bB9C"),
		models.NewTokenAmount(c.Wrapped, e18(10)),
		models.NewTokenAmount(token(t, "USDC"), big.NewInt(30_000_000_000)),
		c.FeeBps)
	route, err := amm.NewRoute([]amm.Pair{pair}, c.Wrapped)
	require.NoError(t, err)
	trade, err := amm.NewTradeExactIn(route, models.NewTokenAmount(c.Wrapped, e18(1)))
	require.NoError(t, err)
	s = Reduce(s, QuoteResolved{Key: s.Active, Quote: &Quote{
		Strategy: StrategyAMM,
		Side:     amm.ExactIn,
		Input:    models.NewTokenAmount(s.TokenIn, trade.InputAmount.Raw),
		Output:   trade.OutputAmount,
		Spender:  c.Router,
		Trade:    trade,
	}})
	s = Reduce(s, ApprovalResolved{Key: s.Active, Required: false})
	require.Equal(t, PhaseReady, s.Phase)
	return s
}
