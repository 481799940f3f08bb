package swap

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/approval"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/debounce"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// ApprovalChecker is satisfied by approval.Checker.
type ApprovalChecker interface {
	Check(ctx context.Context, req approval.Request) (bool, error)
}

// USDEstimator is satisfied by prices.Service.
type USDEstimator interface {
	Estimate(ctx context.Context, amount models.TokenAmount) (decimal.Decimal, bool)
}

type OrchestratorConfig struct {
	Store      *Store
	Local      Quoter // ModeDetailed
	Aggregator Quoter // ModeSimple
	Approvals  ApprovalChecker
	Prices     USDEstimator // optional

	SlippageBps    uint16
	Debounce       time.Duration
	RequestTimeout time.Duration
	Logger         *logrus.Logger
}

// Orchestrator turns user intents into store events and runs the remote
// calls each new request key needs. Superseded calls are left to finish;
// the reducer drops their results.
type Orchestrator struct {
	cfg       OrchestratorConfig
	ctx       context.Context
	debouncer *debounce.Debouncer[RequestKey]

	mu         sync.Mutex
	lastIssued RequestKey
	inflight   sync.WaitGroup
}

func NewOrchestrator(ctx context.Context, cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Local == nil && cfg.Aggregator == nil {
		return nil, fmt.Errorf("no quoter configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = constants.DebounceWindow
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	o := &Orchestrator{cfg: cfg, ctx: ctx}
	o.debouncer = debounce.New(cfg.Debounce, o.refresh)
	return o, nil
}

func (o *Orchestrator) Store() *Store {
	return o.cfg.Store
}

// EditAmount records typed text immediately and quotes it once typing settles.
func (o *Orchestrator) EditAmount(side amm.Side, typed string) State {
	s := o.cfg.Store.Dispatch(EditAmount{Side: side, Typed: typed})
	if s.Phase == PhaseQuoting {
		o.debouncer.Trigger(s.Active)
	} else {
		o.debouncer.Cancel()
	}
	return s
}

func (o *Orchestrator) SelectToken(field Field, token models.Token) State {
	return o.apply(SelectToken{Field: field, Token: token})
}

func (o *Orchestrator) SwitchSides() State {
	return o.apply(SwitchSides{})
}

func (o *Orchestrator) SwitchChain(chainID uint64) State {
	return o.apply(SwitchChain{ChainID: chainID})
}

func (o *Orchestrator) SetMode(mode Mode) State {
	return o.apply(SetMode{Mode: mode})
}

func (o *Orchestrator) SetAccount(account common.Address) State {
	return o.apply(SetAccount{Account: account})
}

// Refresh re-quotes unchanged inputs.
func (o *Orchestrator) Refresh() State {
	return o.apply(Refresh{})
}

func (o *Orchestrator) Dismiss() State {
	return o.cfg.Store.Dispatch(Dismiss{})
}

// apply dispatches a non-amount change; these quote without debouncing.
func (o *Orchestrator) apply(e Event) State {
	s := o.cfg.Store.Dispatch(e)
	o.debouncer.Cancel()
	if s.Phase == PhaseQuoting {
		o.refresh(s.Active)
	}
	return s
}

// Wait blocks until every issued request has reported back.
func (o *Orchestrator) Wait() {
	o.debouncer.Flush()
	o.inflight.Wait()
}

func (o *Orchestrator) Close() {
	o.debouncer.Stop()
	o.inflight.Wait()
}

// refresh issues the quote for key if key is still active and was not
// already issued.
func (o *Orchestrator) refresh(key RequestKey) {
	s := o.cfg.Store.Snapshot()
	if key.IsZero() || s.Active != key || s.Phase != PhaseQuoting {
		return
	}

	o.mu.Lock()
	if key == o.lastIssued {
		o.mu.Unlock()
		return
	}
	fresh := !samePair(key, o.lastIssued)
	o.lastIssued = key
	o.mu.Unlock()

	c, err := constants.ChainByID(s.ChainID)
	if err != nil {
		o.cfg.Store.Dispatch(QuoteFailed{Key: key, Err: err})
		return
	}

	req := QuoteRequest{Chain: c, TokenIn: s.TokenIn, TokenOut: s.TokenOut, Amount: s.Amount, Side: s.Side, Fresh: fresh}
	quoter := o.quoter(s.Mode)

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		o.runQuote(key, s, c, quoter, req)
	}()

	// The pair router and the input amount are known up front only for an
	// exact-in AMM quote; the aggregator names its router in the route.
	if s.Side == amm.ExactIn && quoter != o.cfg.Aggregator {
		o.inflight.Add(1)
		go func() {
			defer o.inflight.Done()
			o.runApproval(key, s.Account, c.Router, s.Amount)
		}()
	}
}

// samePair reports whether a and b quote the same pool on the same chain.
func samePair(a, b RequestKey) bool {
	if a.ChainID != b.ChainID {
		return false
	}
	return (a.TokenIn == b.TokenIn && a.TokenOut == b.TokenOut) ||
		(a.TokenIn == b.TokenOut && a.TokenOut == b.TokenIn)
}

func (o *Orchestrator) quoter(m Mode) Quoter {
	if m == ModeSimple && o.cfg.Aggregator != nil {
		return o.cfg.Aggregator
	}
	if o.cfg.Local != nil {
		return o.cfg.Local
	}
	return o.cfg.Aggregator
}

func (o *Orchestrator) runQuote(key RequestKey, s State, c constants.Chain, quoter Quoter, req QuoteRequest) {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.RequestTimeout)
	defer cancel()

	log := o.cfg.Logger.WithFields(logrus.Fields{
		"gen":  key.Generation,
		"pair": fmt.Sprintf("%s/%s", s.TokenIn.Symbol, s.TokenOut.Symbol),
		"mode": s.Mode.String(),
	})

	q, err := quoter.Quote(ctx, req)
	if err != nil {
		log.WithError(err).Debug("quote failed")
		o.cfg.Store.Dispatch(QuoteFailed{Key: key, Err: err})
		return
	}
	after := o.cfg.Store.Dispatch(QuoteResolved{Key: key, Quote: q})
	if after.Active != key || after.Phase != PhaseReady || after.Quote != q {
		log.Debug("discarded stale quote")
		return
	}
	log.WithField("out", q.Output.String()).Debug("quote ready")

	if s.Side == amm.ExactOut || q.Strategy == StrategyAggregator {
		o.runApproval(key, s.Account, q.Spender, models.NewTokenAmount(q.Input.Token, q.ApprovalAmount(o.cfg.SlippageBps)))
	}
	o.estimate(ctx, key, q)
}

func (o *Orchestrator) runApproval(key RequestKey, owner, spender common.Address, amount models.TokenAmount) {
	if o.cfg.Approvals == nil || owner == (common.Address{}) {
		return
	}
	if amount.Token.IsNative() || amount.IsZero() {
		o.cfg.Store.Dispatch(ApprovalResolved{Key: key, Required: false})
		return
	}

	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.RequestTimeout)
	defer cancel()

	required, err := o.cfg.Approvals.Check(ctx, approval.Request{Owner: owner, Spender: spender, Amount: amount})
	if err != nil {
		o.cfg.Logger.WithError(err).WithField("token", amount.Token.Symbol).Warn("allowance read failed")
		o.cfg.Store.Dispatch(ApprovalCheckFailed{Key: key, Err: err})
		return
	}
	o.cfg.Store.Dispatch(ApprovalResolved{Key: key, Required: required})
}

func (o *Orchestrator) estimate(ctx context.Context, key RequestKey, q *Quote) {
	if o.cfg.Prices == nil {
		return
	}
	var in, out decimal.NullDecimal
	if v, ok := o.cfg.Prices.Estimate(ctx, q.Input); ok {
		in = decimal.NewNullDecimal(v)
	}
	if v, ok := o.cfg.Prices.Estimate(ctx, q.Output); ok {
		out = decimal.NewNullDecimal(v)
	}
	if in.Valid || out.Valid {
		o.cfg.Store.Dispatch(USDEstimated{Key: key, Input: in, Output: out})
	}
}

// MinimumReceived is the slippage-adjusted output floor for a ready quote.
func MinimumReceived(q *Quote, slippageBps uint16) *big.Int {
	if q == nil {
		return nil
	}
	if q.Side == amm.ExactOut {
		return new(big.Int).Set(q.Output.Raw)
	}
	return amm.ApplySlippage(q.Output.Raw, slippageBps)
}
