package server

import (
	"encoding/json"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/wallet"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

type HealthResponse struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

type ChainResponse struct {
	ID      uint64 `json:"chainId"`
	Name    string `json:"name"`
	Native  string `json:"native"`
	Wrapped string `json:"wrapped"`
	Router  string `json:"router"`
}

type TokenResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native"`
}

// QuoteResponse carries raw amounts as decimal strings alongside their
// human-readable forms.
type QuoteResponse struct {
	Strategy       string          `json:"strategy"`
	Side           string          `json:"side"`
	TokenIn        string          `json:"tokenIn"`
	TokenOut       string          `json:"tokenOut"`
	AmountIn       string          `json:"amountIn"`
	AmountOut      string          `json:"amountOut"`
	DisplayIn      string          `json:"displayIn"`
	DisplayOut     string          `json:"displayOut"`
	MinimumOut     string          `json:"minimumOut,omitempty"`
	MaximumIn      string          `json:"maximumIn,omitempty"`
	PriceImpactBps uint16          `json:"priceImpactBps"`
	Path           []string        `json:"path,omitempty"`
	Spender        string          `json:"spender"`
	RouteSummary   json.RawMessage `json:"routeSummary,omitempty"`
}

type RouteBuildRequest struct {
	ChainID      uint64          `json:"chainId"`
	RouteSummary json.RawMessage `json:"routeSummary"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
	SlippageBps  *uint16         `json:"slippageBps"`
}

type AllowanceResponse struct {
	Token    string `json:"token"`
	Owner    string `json:"owner"`
	Spender  string `json:"spender"`
	Amount   string `json:"amount"`
	Required bool   `json:"required"`
}

type SwapCallsRequest struct {
	ChainID  uint64 `json:"chainId"`
	Account  string `json:"account"`
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	Amount   string `json:"amount"` // human-readable, in the side's token
	Side     string `json:"side"`   // exactIn (default) or exactOut
	Mode     string `json:"mode"`   // detailed (default) or simple
}

type SwapCallsResponse struct {
	Quote            QuoteResponse `json:"quote"`
	ApprovalRequired bool          `json:"approvalRequired"`
	Calls            []wallet.Call `json:"calls"`
	Deadline         int64         `json:"deadline"`
}

type PriceResponse struct {
	ChainID uint64 `json:"chainId"`
	Token   string `json:"token"`
	Symbol  string `json:"symbol"`
	USD     string `json:"usd"`
}

type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

type FlagUpdateRequest struct {
	Value bool `json:"value"`
}

type AIAskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"` // optional override
}

type AIAskResponse struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
	TookMs int64  `json:"took_ms"`
}
