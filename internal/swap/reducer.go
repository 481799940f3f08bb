package swap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// Event is a discrete input to Reduce.
type Event interface {
	event()
}

// Field names one of the two token slots.
type Field int

const (
	FieldIn Field = iota
	FieldOut
)

type (
	SwitchChain struct{ ChainID uint64 }
	SelectToken struct {
		Field Field
		Token models.Token
	}
	SwitchSides struct{}
	EditAmount  struct {
		Side  amm.Side
		Typed string
	}
	SetMode    struct{ Mode Mode }
	SetAccount struct{ Account common.Address }
	// Refresh re-issues the quote for unchanged inputs (the user's retry).
	Refresh struct{}

	QuoteResolved struct {
		Key   RequestKey
		Quote *Quote
	}
	QuoteFailed struct {
		Key RequestKey
		Err error
	}
	ApprovalResolved struct {
		Key      RequestKey
		Required bool
	}
	ApprovalCheckFailed struct {
		Key RequestKey
		Err error
	}
	USDEstimated struct {
		Key    RequestKey
		Input  decimal.NullDecimal
		Output decimal.NullDecimal
	}

	SubmitStarted struct{ Key RequestKey }
	SubmitSettled struct {
		Key     RequestKey
		BatchID string
		Err     error
	}
	Dismiss struct{}
)

func (SwitchChain) event()         {}
func (SelectToken) event()         {}
func (SwitchSides) event()         {}
func (EditAmount) event()          {}
func (SetMode) event()             {}
func (SetAccount) event()          {}
func (Refresh) event()             {}
func (QuoteResolved) event()       {}
func (QuoteFailed) event()         {}
func (ApprovalResolved) event()    {}
func (ApprovalCheckFailed) event() {}
func (USDEstimated) event()        {}
func (SubmitStarted) event()       {}
func (SubmitSettled) event()       {}
func (Dismiss) event()             {}

// Reduce applies e to s. It is pure: the same inputs always give the same
// state. Events that do not apply (stale results, edits while a submission
// is pending) return s unchanged, Revision included.
func Reduce(s State, e Event) State {
	next, ok := reduce(s, e)
	if !ok {
		return s
	}
	next.Revision = s.Revision + 1
	return next
}

func reduce(s State, e Event) (State, bool) {
	if s.Phase == PhaseSubmitting {
		switch e.(type) {
		case SubmitSettled:
		default:
			return s, false
		}
	}

	switch e := e.(type) {
	case SwitchChain:
		if e.ChainID == s.ChainID {
			return s, false
		}
		c, err := constants.ChainByID(e.ChainID)
		if err != nil {
			return s, false
		}
		next := NewState(c, s.Mode)
		next.Account = s.Account
		next.Generation = s.Generation
		next.Revision = s.Revision
		return requote(next), true

	case SelectToken:
		if e.Token.ChainID != s.ChainID {
			return s, false
		}
		next := s
		switch e.Field {
		case FieldIn:
			if e.Token.Equals(s.TokenOut) {
				next.TokenIn, next.TokenOut = s.TokenOut, s.TokenIn
			} else {
				next.TokenIn = e.Token
			}
		default:
			if e.Token.Equals(s.TokenIn) {
				next.TokenIn, next.TokenOut = s.TokenOut, s.TokenIn
			} else {
				next.TokenOut = e.Token
			}
		}
		// Replacing the token the amount is typed in clears that amount; a
		// new derived token only needs a fresh quote.
		if !next.AuthoritativeToken().Equals(s.AuthoritativeToken()) {
			next.Typed = ""
			next.Amount = models.ZeroAmount(next.AuthoritativeToken())
		}
		return requote(next), true

	case SwitchSides:
		next := s
		next.TokenIn, next.TokenOut = s.TokenOut, s.TokenIn
		if s.Side == amm.ExactIn {
			next.Side = amm.ExactOut
		} else {
			next.Side = amm.ExactIn
		}
		return requote(next), true

	case EditAmount:
		if e.Side == s.Side && e.Typed == s.Typed && s.Phase != PhaseSuccess && s.Phase != PhaseFailed {
			return s, false
		}
		next := s
		next.Side = e.Side
		next.Typed = strings.TrimSpace(e.Typed)
		return retype(next), true

	case SetMode:
		if e.Mode == s.Mode {
			return s, false
		}
		next := s
		next.Mode = e.Mode
		return requote(next), true

	case SetAccount:
		if e.Account == s.Account {
			return s, false
		}
		next := s
		next.Account = e.Account
		return requote(next), true

	case Refresh:
		if s.Amount.IsZero() || errors.Is(s.Err, ErrInvalidAmount) {
			return s, false
		}
		return requote(s), true

	case QuoteResolved:
		if !s.awaiting(e.Key) || e.Quote == nil {
			return s, false
		}
		next := s
		next.Quote = e.Quote
		next.Phase = PhaseReady
		next.Loading = false
		if next.Approval != ApprovalFailed {
			next.Err = nil
		}
		return next, true

	case QuoteFailed:
		if !s.awaiting(e.Key) {
			return s, false
		}
		next := s
		next.Quote = nil
		next.Loading = false
		next.Err = quoteError(e.Err)
		if errors.Is(next.Err, ErrNoPairData) || errors.Is(next.Err, ErrInsufficientLiquidity) {
			next.Phase = PhaseNoRoute
		} else {
			next.Phase = PhaseError
		}
		return next, true

	case ApprovalResolved:
		if e.Key != s.Active || s.Active.IsZero() {
			return s, false
		}
		next := s
		next.Approval = ApprovalNotRequired
		if e.Required {
			next.Approval = ApprovalRequired
		}
		return next, true

	case ApprovalCheckFailed:
		if e.Key != s.Active || s.Active.IsZero() {
			return s, false
		}
		next := s
		next.Approval = ApprovalFailed
		// A failed allowance read does not hide the quote; it blocks submission.
		if next.Err == nil {
			next.Err = approvalError(e.Err)
		}
		return next, true

	case USDEstimated:
		if e.Key != s.Active || s.Active.IsZero() {
			return s, false
		}
		next := s
		next.InputUSD = e.Input
		next.OutputUSD = e.Output
		return next, true

	case SubmitStarted:
		if s.Phase != PhaseReady || e.Key != s.Active || !s.CanSubmit() {
			return s, false
		}
		next := s
		next.Phase = PhaseSubmitting
		next.Loading = true
		next.Err = nil
		return next, true

	case SubmitSettled:
		if s.Phase != PhaseSubmitting || e.Key != s.Active {
			return s, false
		}
		next := s
		next.Loading = false
		next.BatchID = e.BatchID
		if e.Err != nil {
			next.Phase = PhaseFailed
			next.Err = submissionError(e.Err)
			return next, true
		}
		next.Phase = PhaseSuccess
		next.Err = nil
		next.Typed = ""
		next.Amount = models.ZeroAmount(next.AuthoritativeToken())
		next.Quote = nil
		next.Active = RequestKey{}
		next.InputUSD = decimal.NullDecimal{}
		next.OutputUSD = decimal.NullDecimal{}
		return next, true

	case Dismiss:
		if s.Phase != PhaseSuccess && s.Phase != PhaseFailed && s.Phase != PhaseError && s.Phase != PhaseNoRoute {
			return s, false
		}
		next := s
		next.Phase = PhaseIdle
		next.Err = nil
		next.BatchID = ""
		next.Quote = nil
		next.Active = RequestKey{}
		next.Loading = false
		return next, true
	}

	return s, false
}

// awaiting reports whether a quote result for k would be current.
func (s State) awaiting(k RequestKey) bool {
	return !s.Active.IsZero() && k == s.Active && s.Phase == PhaseQuoting
}

// retype parses Typed in the authoritative token and moves to QUOTING, IDLE or ERROR.
func retype(s State) State {
	tok := s.AuthoritativeToken()
	raw, err := models.ParseUnits(s.Typed, tok.Decimals)
	if err != nil {
		s.Amount = models.ZeroAmount(tok)
		s.Generation++
		s.Active = RequestKey{}
		s.Quote = nil
		s.Loading = false
		s.Approval = ApprovalUnknown
		s.InputUSD = decimal.NullDecimal{}
		s.OutputUSD = decimal.NullDecimal{}
		s.Phase = PhaseError
		s.Err = fmt.Errorf("%w: %w", ErrInvalidAmount, err)
		return s
	}
	s.Amount = models.NewTokenAmount(tok, raw)
	return requote(s)
}

// requote invalidates every derived value and issues a new request key when
// there is something to quote.
func requote(s State) State {
	s.Amount = models.NewTokenAmount(s.AuthoritativeToken(), s.Amount.Raw)
	s.Generation++
	s.Quote = nil
	s.Approval = ApprovalUnknown
	s.InputUSD = decimal.NullDecimal{}
	s.OutputUSD = decimal.NullDecimal{}
	s.BatchID = ""
	s.Err = nil

	if s.Amount.IsZero() {
		s.Phase = PhaseIdle
		s.Loading = false
		s.Active = RequestKey{}
		return s
	}
	s.Phase = PhaseQuoting
	s.Loading = true
	s.Active = s.Key()
	return s
}
