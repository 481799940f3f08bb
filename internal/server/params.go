package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/swap"
)

func parseChain(s string) (constants.Chain, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return constants.Chain{}, fmt.Errorf("chainId is required")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return constants.Chain{}, fmt.Errorf("chainId must be an integer")
	}
	return constants.ChainByID(id)
}

func parseAddress(name, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s must be a hex address", name)
	}
	return common.HexToAddress(s), nil
}

// token accepts a listed symbol (case-insensitive) or an address. Unlisted
// addresses are resolved on chain when the reader serves that chain.
func (h *Handlers) token(ctx context.Context, c constants.Chain, s string) (models.Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Token{}, fmt.Errorf("token is required")
	}
	if !common.IsHexAddress(s) {
		for _, t := range c.Tokens {
			if strings.EqualFold(t.Symbol, s) {
				return t, nil
			}
		}
		return models.Token{}, fmt.Errorf("unknown token %q on %s", s, c.Name)
	}

	addr := common.HexToAddress(s)
	if addr == models.NativeAddress {
		return c.Native, nil
	}
	if t, ok := c.TokenByAddress(addr); ok {
		return t, nil
	}
	if h.Resolver == nil || c.ID != h.ChainID {
		return models.Token{}, fmt.Errorf("unknown token %s on %s", addr.Hex(), c.Name)
	}
	return h.Resolver.ResolveToken(ctx, addr)
}

// onChain rejects chains the configured reader is not connected to.
func (h *Handlers) onChain(c constants.Chain) error {
	if h.ChainID != 0 && c.ID != h.ChainID {
		return fmt.Errorf("chain %d is not served by this instance", c.ID)
	}
	return nil
}

// quoteParams is the shared input of the quote endpoints.
type quoteParams struct {
	chain    constants.Chain
	tokenIn  models.Token
	tokenOut models.Token
	side     amm.Side
	amount   models.TokenAmount
}

func (h *Handlers) parseQuote(ctx context.Context, chainID, tokenIn, tokenOut, amount, side string) (quoteParams, error) {
	var p quoteParams
	var err error

	if p.chain, err = parseChain(chainID); err != nil {
		return p, err
	}
	if p.tokenIn, err = h.token(ctx, p.chain, tokenIn); err != nil {
		return p, fmt.Errorf("tokenIn: %w", err)
	}
	if p.tokenOut, err = h.token(ctx, p.chain, tokenOut); err != nil {
		return p, fmt.Errorf("tokenOut: %w", err)
	}
	if p.side, err = amm.ParseSide(strings.TrimSpace(side)); err != nil {
		return p, err
	}

	fixed := p.tokenIn
	if p.side == amm.ExactOut {
		fixed = p.tokenOut
	}
	p.amount, err = models.ParseTokenAmount(fixed, strings.TrimSpace(amount))
	if err != nil || p.amount.IsZero() {
		return p, fmt.Errorf("%w: %q", swap.ErrInvalidAmount, amount)
	}
	return p, nil
}

func (p quoteParams) request() swap.QuoteRequest {
	return swap.QuoteRequest{
		Chain:    p.chain,
		TokenIn:  p.tokenIn,
		TokenOut: p.tokenOut,
		Amount:   p.amount,
		Side:     p.side,
	}
}

func parseMode(s string) (swap.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "detailed":
		return swap.ModeDetailed, nil
	case "simple":
		return swap.ModeSimple, nil
	}
	return swap.ModeDetailed, fmt.Errorf("mode must be detailed or simple")
}

func quoteResponse(q *swap.Quote, slippageBps uint16) QuoteResponse {
	resp := QuoteResponse{
		Strategy:       q.Strategy,
		Side:           q.Side.String(),
		TokenIn:        q.Input.Token.Address.Hex(),
		TokenOut:       q.Output.Token.Address.Hex(),
		AmountIn:       q.Input.Raw.String(),
		AmountOut:      q.Output.Raw.String(),
		DisplayIn:      q.Input.Exact(),
		DisplayOut:     q.Output.Exact(),
		PriceImpactBps: q.PriceImpactBps,
		Spender:        q.Spender.Hex(),
	}
	if q.Side == amm.ExactOut {
		resp.MaximumIn = q.ApprovalAmount(slippageBps).String()
	} else {
		resp.MinimumOut = swap.MinimumReceived(q, slippageBps).String()
	}
	if q.Trade != nil {
		for _, t := range q.Trade.Route.Path {
			resp.Path = append(resp.Path, t.Address.Hex())
		}
	}
	if q.Route != nil {
		resp.RouteSummary = q.Route.RawSummary
	}
	return resp
}
