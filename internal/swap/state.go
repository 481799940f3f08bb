package swap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// Phase is the per-attempt state machine:
// IDLE -> QUOTING -> (READY | NO_ROUTE | ERROR) -> SUBMITTING -> (SUCCESS | FAILED) -> IDLE.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseQuoting
	PhaseReady
	PhaseNoRoute
	PhaseError
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

var phaseNames = [...]string{"IDLE", "QUOTING", "READY", "NO_ROUTE", "ERROR", "SUBMITTING", "SUCCESS", "FAILED"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// Mode selects the quoting strategy.
type Mode int

const (
	// ModeDetailed prices against the chain's constant-product pair.
	ModeDetailed Mode = iota
	// ModeSimple asks the route aggregator.
	ModeSimple
)

func (m Mode) String() string {
	if m == ModeSimple {
		return "simple"
	}
	return "detailed"
}

func (m Mode) Strategy() string {
	if m == ModeSimple {
		return StrategyAggregator
	}
	return StrategyAMM
}

const (
	StrategyAMM        = "amm"
	StrategyAggregator = "aggregator"
)

type ApprovalState int

const (
	ApprovalUnknown ApprovalState = iota
	ApprovalNotRequired
	ApprovalRequired
	ApprovalFailed
)

func (a ApprovalState) String() string {
	switch a {
	case ApprovalNotRequired:
		return "not_required"
	case ApprovalRequired:
		return "required"
	case ApprovalFailed:
		return "failed"
	}
	return "unknown"
}

// Quote is the result of either strategy. Exactly one of Trade and Route is set.
type Quote struct {
	Strategy string
	Side     amm.Side
	Input    models.TokenAmount
	Output   models.TokenAmount
	// Spender is the contract that pulls the input token.
	Spender        common.Address
	PriceImpactBps uint16

	Trade *amm.Trade
	Route *kyberswap.Route
}

// ApprovalAmount is the most input the swap may pull.
func (q *Quote) ApprovalAmount(slippageBps uint16) *big.Int {
	if q.Side == amm.ExactOut {
		return amm.MaxAmountIn(q.Input.Raw, slippageBps)
	}
	return new(big.Int).Set(q.Input.Raw)
}

// RequestKey identifies the inputs a quote was issued for. Results carry
// the key they were requested with; a result whose key is no longer the
// active one is stale and dropped.
type RequestKey struct {
	Generation uint64
	ChainID    uint64
	TokenIn    common.Address
	TokenOut   common.Address
	Side       amm.Side
	Amount     string
	Mode       Mode
	Account    common.Address
}

func (k RequestKey) IsZero() bool {
	return k == RequestKey{}
}

// State is the single canonical snapshot of the swap form. It is a value;
// only Reduce produces new ones.
type State struct {
	ChainID  uint64
	Account  common.Address
	TokenIn  models.Token
	TokenOut models.Token
	Mode     Mode

	// Side and Typed describe the field the user edited; Amount is Typed parsed
	// in that field's token.
	Side   amm.Side
	Typed  string
	Amount models.TokenAmount

	Phase    Phase
	Loading  bool
	Quote    *Quote
	Approval ApprovalState
	Err      error

	InputUSD  decimal.NullDecimal
	OutputUSD decimal.NullDecimal

	BatchID string

	// Active is the key of the current quote request; zero when none.
	Active     RequestKey
	Generation uint64
	// Revision increases on every applied event.
	Revision uint64
}

// NewState starts a form on c with its default pair.
func NewState(c constants.Chain, mode Mode) State {
	return State{
		ChainID:  c.ID,
		TokenIn:  c.DefaultIn,
		TokenOut: c.DefaultOut,
		Mode:     mode,
		Side:     amm.ExactIn,
		Amount:   models.ZeroAmount(c.DefaultIn),
	}
}

// AuthoritativeToken is the token of the field the user typed in.
func (s State) AuthoritativeToken() models.Token {
	if s.Side == amm.ExactOut {
		return s.TokenOut
	}
	return s.TokenIn
}

// Key is the request key for the state's current inputs.
func (s State) Key() RequestKey {
	return RequestKey{
		Generation: s.Generation,
		ChainID:    s.ChainID,
		TokenIn:    s.TokenIn.Address,
		TokenOut:   s.TokenOut.Address,
		Side:       s.Side,
		Amount:     s.Amount.Exact(),
		Mode:       s.Mode,
		Account:    s.Account,
	}
}

// CanSubmit reports whether Submit would be accepted.
func (s State) CanSubmit() bool {
	return s.Phase == PhaseReady && s.Quote != nil &&
		s.Account != (common.Address{}) &&
		(s.Approval == ApprovalNotRequired || s.Approval == ApprovalRequired)
}

// loadingPlaceholder is shown instead of a derived amount that is still being fetched.
const loadingPlaceholder = "…"

// InputDisplay is the text for the pay field.
func (s State) InputDisplay() string {
	if s.Side == amm.ExactIn {
		return s.Typed
	}
	return s.derived(func(q *Quote) models.TokenAmount { return q.Input })
}

// OutputDisplay is the text for the receive field.
func (s State) OutputDisplay() string {
	if s.Side == amm.ExactOut {
		return s.Typed
	}
	return s.derived(func(q *Quote) models.TokenAmount { return q.Output })
}

func (s State) derived(pick func(*Quote) models.TokenAmount) string {
	if s.Phase == PhaseQuoting {
		return loadingPlaceholder
	}
	if s.Quote == nil {
		return ""
	}
	a := pick(s.Quote)
	return models.FormatUnits(a.Raw, a.Token.Decimals)
}

// Message is the user-facing text for the current error, if any.
func (s State) Message() string {
	return UserMessage(s.Err)
}
