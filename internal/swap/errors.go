package swap

import (
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
)

// User-facing failure conditions. Every remote failure in the swap flow is
// converted to one of these before it reaches State.
var (
	ErrNoPairData            = errors.New("no liquidity pool for this pair")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for this trade")
	ErrQuoteFetchFailed      = errors.New("quote fetch failed")
	ErrApprovalCheckFailed   = errors.New("approval check failed")
	ErrSubmissionFailed      = errors.New("submission failed")
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrExactOutUnsupported = errors.New("aggregator quotes only support an exact input amount")
)

// kyberswap "route not found"
const kyberRouteNotFound = 4008

func quoteError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isTaxonomy(err), errors.Is(err, ErrExactOutUnsupported):
		return err
	case errors.Is(err, reserves.ErrNoPair), errors.Is(err, amm.ErrNoReserves), errors.Is(err, amm.ErrNoRoute):
		return fmt.Errorf("%w: %w", ErrNoPairData, err)
	case errors.Is(err, amm.ErrInsufficientLiquidity),
		errors.Is(err, amm.ErrInsufficientReserves),
		errors.Is(err, amm.ErrInsufficientOutputAmount):
		return fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
	}
	var apiErr *kyberswap.APIError
	if errors.As(err, &apiErr) && apiErr.Code == kyberRouteNotFound {
		return fmt.Errorf("%w: %w", ErrNoPairData, err)
	}
	return fmt.Errorf("%w: %w", ErrQuoteFetchFailed, err)
}

func approvalError(err error) error {
	if err == nil || errors.Is(err, ErrApprovalCheckFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrApprovalCheckFailed, err)
}

func submissionError(err error) error {
	if err == nil || errors.Is(err, ErrSubmissionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
}

func isTaxonomy(err error) bool {
	return errors.Is(err, ErrNoPairData) ||
		errors.Is(err, ErrInsufficientLiquidity) ||
		errors.Is(err, ErrQuoteFetchFailed) ||
		errors.Is(err, ErrApprovalCheckFailed) ||
		errors.Is(err, ErrSubmissionFailed)
}

// UserMessage renders err as the short text shown next to the swap button.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPairData):
		return "No liquidity pool exists for this pair."
	case errors.Is(err, ErrInsufficientLiquidity):
		return "Insufficient liquidity for this trade."
	case errors.Is(err, ErrExactOutUnsupported):
		return "Simple swaps need an input amount. Enter the amount you pay."
	case errors.Is(err, ErrInvalidAmount):
		return "Enter a valid amount."
	case errors.Is(err, ErrQuoteFetchFailed):
		return "Could not fetch a quote. Edit the amount to try again."
	case errors.Is(err, ErrApprovalCheckFailed):
		return "Could not check token approval. Try again."
	case errors.Is(err, ErrSubmissionFailed):
		return "Swap was not submitted."
	}
	return "Something went wrong."
}
