package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/approval"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/prices"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/swap"
)

func (h *Handlers) Chains(c echo.Context) error {
	out := make([]ChainResponse, 0, len(constants.SupportedChains()))
	for _, id := range constants.SupportedChains() {
		ch, err := constants.ChainByID(id)
		if err != nil {
			continue
		}
		out = append(out, ChainResponse{
			ID:      ch.ID,
			Name:    ch.Name,
			Native:  ch.Native.Symbol,
			Wrapped: ch.Wrapped.Address.Hex(),
			Router:  ch.Router.Hex(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) Tokens(c echo.Context) error {
	ch, err := parseChain(c.Param("chainId"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chainId", map[string]any{"chainId": err.Error()})
	}
	out := make([]TokenResponse, 0, len(ch.Tokens))
	for _, t := range ch.Tokens {
		out = append(out, TokenResponse{
			Address:  t.Address.Hex(),
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
			Native:   t.IsNative(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}

// Reserves returns the constant-product pair for tokenA/tokenB. Native
// currency is read as its wrapped token.
func (h *Handlers) Reserves(c echo.Context) error {
	if h.Pairs == nil {
		return h.unavailable(c, "reserve reader")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := parseChain(c.QueryParam("chainId"))
	if err == nil {
		err = h.onChain(ch)
	}
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chainId", map[string]any{"chainId": err.Error()})
	}
	a, err := h.token(ctx, ch, c.QueryParam("tokenA"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid tokenA", map[string]any{"tokenA": err.Error()})
	}
	b, err := h.token(ctx, ch, c.QueryParam("tokenB"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid tokenB", map[string]any{"tokenB": err.Error()})
	}

	res, err := h.Pairs.Fetch(ctx, reserves.Key{ChainID: ch.ID, TokenA: a.Address, TokenB: b.Address})
	switch {
	case errors.Is(err, reserves.ErrNoPair):
		return h.err(c, http.StatusNotFound, "no pair for tokens", nil)
	case err != nil:
		return h.fail(c, http.StatusBadGateway, "failed to fetch reserves", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Quote prices a trade against the chain's constant-product pair.
func (h *Handlers) Quote(c echo.Context) error {
	if h.Pairs == nil {
		return h.unavailable(c, "reserve reader")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.parseQuote(ctx, c.QueryParam("chainId"), c.QueryParam("tokenIn"), c.QueryParam("tokenOut"), c.QueryParam("amount"), c.QueryParam("side"))
	if err == nil {
		err = h.onChain(p.chain)
	}
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid quote request", map[string]any{"err": err.Error()})
	}

	q, err := swap.NewLocalQuoter(h.Pairs).Quote(ctx, p.request())
	if err != nil {
		return h.fail(c, swapStatus(err), swap.UserMessage(err), err)
	}
	return c.JSON(http.StatusOK, quoteResponse(q, h.SlippageBps))
}

// Routes asks the aggregator for an exact-input route. The returned
// routeSummary is what /route/build expects back.
func (h *Handlers) Routes(c echo.Context) error {
	if h.Aggregator == nil {
		return h.unavailable(c, "aggregator")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.parseQuote(ctx, c.QueryParam("chainId"), c.QueryParam("tokenIn"), c.QueryParam("tokenOut"), c.QueryParam("amount"), "exactIn")
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid route request", map[string]any{"err": err.Error()})
	}

	q, err := swap.NewAggregatorQuoter(h.Aggregator).Quote(ctx, p.request())
	if err != nil {
		return h.fail(c, swapStatus(err), swap.UserMessage(err), err)
	}
	return c.JSON(http.StatusOK, quoteResponse(q, h.SlippageBps))
}

func (h *Handlers) BuildRoute(c echo.Context) error {
	if h.Aggregator == nil {
		return h.unavailable(c, "aggregator")
	}

	var req RouteBuildRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	ch, err := constants.ChainByID(req.ChainID)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chainId", map[string]any{"chainId": err.Error()})
	}
	if len(req.RouteSummary) == 0 || string(req.RouteSummary) == "null" {
		return h.err(c, http.StatusBadRequest, "routeSummary is required", nil)
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid sender", map[string]any{"sender": err.Error()})
	}
	recipient := sender
	if strings.TrimSpace(req.Recipient) != "" {
		if recipient, err = parseAddress("recipient", req.Recipient); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid recipient", map[string]any{"recipient": err.Error()})
		}
	}
	slippage := h.SlippageBps
	if req.SlippageBps != nil {
		if *req.SlippageBps >= 10000 {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be < 10000"})
		}
		slippage = *req.SlippageBps
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	enc, err := h.Aggregator.BuildRoute(ctx, kyberswap.BuildRequest{
		Chain:       ch.AggregatorKey,
		RawSummary:  req.RouteSummary,
		Sender:      sender.Hex(),
		Recipient:   recipient.Hex(),
		SlippageBps: slippage,
		Deadline:    h.deadline().Unix(),
		Source:      h.Source,
	})
	if err != nil {
		return h.fail(c, http.StatusBadGateway, "failed to build route", err)
	}
	return c.JSON(http.StatusOK, enc)
}

// Allowance reports whether owner must approve spender for amount of token.
func (h *Handlers) Allowance(c echo.Context) error {
	if h.Approvals == nil {
		return h.unavailable(c, "allowance reader")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := parseChain(c.QueryParam("chainId"))
	if err == nil {
		err = h.onChain(ch)
	}
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chainId", map[string]any{"chainId": err.Error()})
	}
	tok, err := h.token(ctx, ch, c.QueryParam("token"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token", map[string]any{"token": err.Error()})
	}
	owner, err := parseAddress("owner", c.QueryParam("owner"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": err.Error()})
	}
	spender := ch.Router
	if s := c.QueryParam("spender"); s != "" {
		if spender, err = parseAddress("spender", s); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid spender", map[string]any{"spender": err.Error()})
		}
	}
	amount, err := models.ParseTokenAmount(tok, c.QueryParam("amount"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": err.Error()})
	}

	required, err := h.Approvals.Check(ctx, approval.Request{Owner: owner, Spender: spender, Amount: amount})
	if err != nil {
		return h.fail(c, http.StatusBadGateway, "failed to read allowance", err)
	}
	return c.JSON(http.StatusOK, AllowanceResponse{
		Token:    tok.Address.Hex(),
		Owner:    owner.Hex(),
		Spender:  spender.Hex(),
		Amount:   amount.Raw.String(),
		Required: required,
	})
}

// SwapCalls quotes, checks approval and returns the ordered call batch a
// wallet can pass to wallet_sendCalls.
func (h *Handlers) SwapCalls(c echo.Context) error {
	if h.Approvals == nil {
		return h.unavailable(c, "allowance reader")
	}

	var req SwapCallsRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mode", map[string]any{"mode": err.Error()})
	}
	account, err := parseAddress("account", req.Account)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid account", map[string]any{"account": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	p, err := h.parseQuote(ctx, fmt.Sprint(req.ChainID), req.TokenIn, req.TokenOut, req.Amount, req.Side)
	if err == nil {
		err = h.onChain(p.chain)
	}
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid swap request", map[string]any{"err": err.Error()})
	}

	var quoter swap.Quoter
	switch {
	case mode == swap.ModeSimple && h.Aggregator != nil:
		quoter = swap.NewAggregatorQuoter(h.Aggregator)
	case mode == swap.ModeDetailed && h.Pairs != nil:
		quoter = swap.NewLocalQuoter(h.Pairs)
	default:
		return h.unavailable(c, mode.Strategy()+" quoting")
	}

	q, err := quoter.Quote(ctx, p.request())
	if err != nil {
		return h.fail(c, swapStatus(err), swap.UserMessage(err), err)
	}

	required, err := h.Approvals.Check(ctx, approval.Request{
		Owner:   account,
		Spender: q.Spender,
		Amount:  models.NewTokenAmount(q.Input.Token, q.ApprovalAmount(h.SlippageBps)),
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", swap.ErrApprovalCheckFailed, err)
		return h.fail(c, swapStatus(err), swap.UserMessage(err), err)
	}

	deadline := h.deadline()
	calls, err := swap.BuildCalls(ctx, h.Aggregator, swap.CallsInput{
		Chain:            p.chain,
		Account:          account,
		Quote:            q,
		ApprovalRequired: required,
		SlippageBps:      h.SlippageBps,
		Deadline:         deadline,
		Source:           h.Source,
	})
	if err != nil {
		return h.fail(c, buildStatus(err), "failed to build calls", err)
	}

	return c.JSON(http.StatusOK, SwapCallsResponse{
		Quote:            quoteResponse(q, h.SlippageBps),
		ApprovalRequired: required,
		Calls:            calls,
		Deadline:         deadline.Unix(),
	})
}

// Price returns the USD price of a listed symbol or token address.
func (h *Handlers) Price(c echo.Context) error {
	if h.Prices == nil {
		return h.unavailable(c, "price feed")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := parseChain(c.Param("chainId"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chainId", map[string]any{"chainId": err.Error()})
	}
	tok, err := h.token(ctx, ch, c.Param("token"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token", map[string]any{"token": err.Error()})
	}

	price, err := h.Prices.USDPrice(ctx, tok)
	switch {
	case errors.Is(err, prices.ErrNoPrice):
		return h.err(c, http.StatusNotFound, "no price for token", nil)
	case err != nil:
		return h.fail(c, http.StatusBadGateway, "failed to get price", err)
	}
	return c.JSON(http.StatusOK, PriceResponse{
		ChainID: ch.ID,
		Token:   tok.Address.Hex(),
		Symbol:  tok.Symbol,
		USD:     price.String(),
	})
}

func (h *Handlers) deadline() time.Time {
	d := h.Deadline
	if d <= 0 {
		d = constants.DefaultDeadline
	}
	return time.Now().Add(d)
}

// buildStatus separates aggregator failures from local encoding bugs.
func buildStatus(err error) int {
	var apiErr *kyberswap.APIError
	var httpErr *kyberswap.HTTPError
	if errors.As(err, &apiErr) || errors.As(err, &httpErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
