package models

import "time"

type AttemptStatus string

const (
	AttemptSubmitted AttemptStatus = "submitted"
	AttemptFailed    AttemptStatus = "failed"
)

// SwapAttempt is one submitted (or refused) batch as recorded in swap history.
type SwapAttempt struct {
	ID        string        `json:"id"`
	BatchID   string        `json:"batch_id"`
	Timestamp time.Time     `json:"timestamp"`
	ChainID   uint64        `json:"chain_id"`
	Account   string        `json:"account"`
	Pair      string        `json:"pair"` // e.g. "ETH/USDC"
	TokenIn   string        `json:"token_in"`
	TokenOut  string        `json:"token_out"`
	AmountIn  string        `json:"amount_in"`  // raw integer, smallest unit
	AmountOut string        `json:"amount_out"` // raw integer, smallest unit
	ExactSide string        `json:"exact_side"`
	Strategy  string        `json:"strategy"` // "amm" | "aggregator"
	Approval  bool          `json:"approval"`
	Status    AttemptStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
}
