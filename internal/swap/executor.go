package swap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/storage"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/wallet"
)

type ExecutorConfig struct {
	Store     *Store
	Submitter wallet.Submitter
	Builder   RouteBuilder // required for aggregator quotes

	SlippageBps  uint16
	Deadline     time.Duration
	PaymasterURL string
	// SponsorGas decides per submission whether to attach the paymaster.
	SponsorGas func(ctx context.Context) bool
	Source     string

	History  storage.SwapHistory // optional
	Attempts storage.SwapStore   // optional

	Logger *logrus.Logger
	Now    func() time.Time
}

// Executor submits the READY quote as one atomic batch.
type Executor struct {
	cfg ExecutorConfig

	mu        sync.Mutex
	listeners []func(batchID string)
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("submitter is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = constants.DefaultDeadline
	}
	return &Executor{cfg: cfg}, nil
}

// OnSuccess registers fn to run after every accepted batch.
func (e *Executor) OnSuccess(fn func(batchID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Submit sends the current quote. It returns the batch id, or an error
// wrapping ErrApprovalCheckFailed or ErrSubmissionFailed. Once the batch has
// been handed to the wallet it cannot be cancelled.
func (e *Executor) Submit(ctx context.Context) (batchID string, err error) {
	snap := e.cfg.Store.Snapshot()
	if err := e.precheck(snap); err != nil {
		return "", err
	}
	c, err := constants.ChainByID(snap.ChainID)
	if err != nil {
		return "", submissionError(err)
	}

	key := snap.Active
	started := e.cfg.Store.Dispatch(SubmitStarted{Key: key})
	if started.Phase != PhaseSubmitting || started.Active != key {
		return "", submissionError(fmt.Errorf("quote changed before submission"))
	}

	// The loading flag is cleared here whatever happens below.
	defer func() {
		if r := recover(); r != nil {
			err = submissionError(fmt.Errorf("panic: %v", r))
		}
		e.cfg.Store.Dispatch(SubmitSettled{Key: key, BatchID: batchID, Err: err})
		e.settled(snap, batchID, err)
	}()

	calls, err := BuildCalls(ctx, e.cfg.Builder, CallsInput{
		Chain:            c,
		Account:          snap.Account,
		Quote:            snap.Quote,
		ApprovalRequired: snap.Approval == ApprovalRequired,
		SlippageBps:      e.cfg.SlippageBps,
		Deadline:         e.cfg.Now().Add(e.cfg.Deadline),
		Source:           e.cfg.Source,
	})
	if err != nil {
		return "", submissionError(err)
	}

	paymaster := ""
	if e.cfg.PaymasterURL != "" && e.cfg.SponsorGas != nil && e.cfg.SponsorGas(ctx) {
		paymaster = e.cfg.PaymasterURL
	}

	batchID, err = e.cfg.Submitter.SendCalls(ctx, snap.Account, snap.ChainID, calls, paymaster)
	if err != nil {
		return "", submissionError(err)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"batch":    batchID,
		"strategy": snap.Quote.Strategy,
		"in":       snap.Quote.Input.String(),
		"out":      snap.Quote.Output.String(),
		"approval": snap.Approval == ApprovalRequired,
	}).Info("swap submitted")
	return batchID, nil
}

func (e *Executor) precheck(s State) error {
	if s.Phase != PhaseReady || s.Quote == nil {
		return submissionError(fmt.Errorf("no quote ready (phase %s)", s.Phase))
	}
	if s.Account == (common.Address{}) {
		return submissionError(fmt.Errorf("no account connected"))
	}
	switch s.Approval {
	case ApprovalFailed:
		if s.Err != nil {
			return s.Err
		}
		return ErrApprovalCheckFailed
	case ApprovalUnknown:
		return fmt.Errorf("%w: allowance not checked yet", ErrApprovalCheckFailed)
	}
	return nil
}

// settled records the attempt and notifies listeners. Neither may undo the
// settlement, so a panic here is logged and swallowed.
func (e *Executor) settled(s State, batchID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.cfg.Logger.WithField("batch", batchID).Errorf("post-submit hook panicked: %v", r)
		}
	}()
	e.record(s, batchID, err)
	if err == nil {
		e.notify(batchID)
	}
}

func (e *Executor) notify(batchID string) {
	e.mu.Lock()
	listeners := append([]func(string){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(batchID)
	}
}

func (e *Executor) record(s State, batchID string, err error) {
	if e.cfg.History == nil && e.cfg.Attempts == nil {
		return
	}
	q := s.Quote
	a := &models.SwapAttempt{
		ID:        uuid.NewString(),
		BatchID:   batchID,
		Timestamp: e.cfg.Now().UTC(),
		ChainID:   s.ChainID,
		Account:   s.Account.Hex(),
		Pair:      fmt.Sprintf("%s/%s", q.Input.Token.Symbol, q.Output.Token.Symbol),
		TokenIn:   strings.ToLower(q.Input.Token.Address.Hex()),
		TokenOut:  strings.ToLower(q.Output.Token.Address.Hex()),
		AmountIn:  q.Input.Raw.String(),
		AmountOut: q.Output.Raw.String(),
		ExactSide: q.Side.String(),
		Strategy:  q.Strategy,
		Approval:  s.Approval == ApprovalRequired,
		Status:    models.AttemptSubmitted,
	}
	if err != nil {
		a.Status = models.AttemptFailed
		a.Error = err.Error()
	}

	// History writes are best effort.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log := e.cfg.Logger.WithField("attempt", a.ID)
	if e.cfg.History != nil {
		if err := e.cfg.History.AddRecentAttempt(ctx, a); err != nil {
			log.WithError(err).Warn("failed to add recent attempt")
		}
		if err := e.cfg.History.PublishAttempt(ctx, a); err != nil {
			log.WithError(err).Warn("failed to publish attempt")
		}
	}
	if e.cfg.Attempts != nil {
		if err := e.cfg.Attempts.InsertAttempt(ctx, a); err != nil {
			log.WithError(err).Warn("failed to store attempt")
		}
	}
}
