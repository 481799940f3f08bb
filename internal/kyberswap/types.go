package kyberswap

import "encoding/json"

type RouteRequest struct {
	Chain    string // aggregator chain slug, e.g. "base"
	TokenIn  string
	TokenOut string
	AmountIn string // raw integer as string

	IncludedSources []string
	ExcludedSources []string
	GasInclude      *bool
}

// envelope is the common response wrapper; Code is 0 on success.
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// RouteSummary is the subset of the routes payload the engine reads.
type RouteSummary struct {
	TokenIn      string        `json:"tokenIn"`
	AmountIn     string        `json:"amountIn"`
	AmountInUsd  string        `json:"amountInUsd"`
	TokenOut     string        `json:"tokenOut"`
	AmountOut    string        `json:"amountOut"`
	AmountOutUsd string        `json:"amountOutUsd"`
	Gas          string        `json:"gas"`
	GasPrice     string        `json:"gasPrice"`
	GasUsd       string        `json:"gasUsd"`
	RouteID      string        `json:"routeID"`
	Route        [][]RouteStep `json:"route"`
}

type RouteStep struct {
	Pool       string `json:"pool"`
	TokenIn    string `json:"tokenIn"`
	TokenOut   string `json:"tokenOut"`
	SwapAmount string `json:"swapAmount"`
	AmountOut  string `json:"amountOut"`
	Exchange   string `json:"exchange"`
	PoolType   string `json:"poolType"`
}

// Route is a routes response. RawSummary is the routeSummary exactly as
// received; the build endpoint requires it back unmodified.
type Route struct {
	Summary       RouteSummary    `json:"routeSummary"`
	RawSummary    json.RawMessage `json:"-"`
	RouterAddress string          `json:"routerAddress"`
}

type routeData struct {
	RouteSummary  json.RawMessage `json:"routeSummary"`
	RouterAddress string          `json:"routerAddress"`
}

type BuildRequest struct {
	Chain       string
	RawSummary  json.RawMessage
	Sender      string
	Recipient   string
	SlippageBps uint16
	Deadline    int64 // unix seconds; zero lets the aggregator choose
	Source      string
}

type buildBody struct {
	RouteSummary      json.RawMessage `json:"routeSummary"`
	Sender            string          `json:"sender"`
	Recipient         string          `json:"recipient"`
	SlippageTolerance uint16          `json:"slippageTolerance"`
	Deadline          int64           `json:"deadline,omitempty"`
	Source            string          `json:"source,omitempty"`
}

// EncodedRoute is ready-to-submit calldata for the aggregator router.
type EncodedRoute struct {
	AmountIn         string `json:"amountIn"`
	AmountInUsd      string `json:"amountInUsd"`
	AmountOut        string `json:"amountOut"`
	AmountOutUsd     string `json:"amountOutUsd"`
	Gas              string `json:"gas"`
	GasUsd           string `json:"gasUsd"`
	Data             string `json:"data"`
	RouterAddress    string `json:"routerAddress"`
	TransactionValue string `json:"transactionValue"`
}
