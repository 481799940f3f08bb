package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/ai"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/storage"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/swap"
)

// FlagStore is satisfied by flags.Store.
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// Asker is satisfied by ai.Agent.
type Asker interface {
	Ask(ctx context.Context, question string) (*ai.AskResult, error)
}

// RouteClient is satisfied by kyberswap.Client.
type RouteClient interface {
	swap.RouteFetcher
	swap.RouteBuilder
}

// PriceSource is satisfied by prices.Service.
type PriceSource interface {
	USDPrice(ctx context.Context, token models.Token) (decimal.Decimal, error)
}

// TokenResolver is satisfied by chain.Reader.
type TokenResolver interface {
	ResolveToken(ctx context.Context, address common.Address) (models.Token, error)
}

// Handlers holds the dependencies of every endpoint. Optional ones may be
// nil; their endpoints then answer 503.
type Handlers struct {
	// ChainID is the chain the on-chain reader is connected to. Reserve,
	// quote and allowance endpoints only serve this chain.
	ChainID uint64

	History      storage.SwapHistory
	Flags        FlagStore
	AI           Asker
	AIBaseConfig ai.AgentConfig
	Pairs        swap.ReserveSource
	Aggregator   RouteClient
	Approvals    swap.ApprovalChecker
	Prices       PriceSource
	Resolver     TokenResolver

	SlippageBps uint16
	Deadline    time.Duration
	Source      string

	DevMode bool
	Logger  *logrus.Logger
}

// err writes the JSON error envelope. details are only exposed in dev mode.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail logs err and writes it with the given status.
func (h *Handlers) fail(c echo.Context, code int, msg string, err error) error {
	if code >= http.StatusInternalServerError {
		h.logger().WithError(err).WithField("path", c.Path()).Warn(msg)
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

func (h *Handlers) unavailable(c echo.Context, what string) error {
	return h.err(c, http.StatusServiceUnavailable, what+" is not configured", nil)
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	if h.History == nil {
		return c.JSON(http.StatusOK, HealthResponse{OK: true})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.History.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{OK: false, Checks: map[string]string{"redis": err.Error()}})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Checks: map[string]string{"redis": "ok"}})
}

// RecentSwaps accepts limit in [1, 200], default 100.
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.History == nil {
		return h.unavailable(c, "history")
	}

	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.History.GetRecentAttempts(ctx, int64(limit))
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to get swaps", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to upsert flag", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to update flag", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if errors.Is(err, flags.ErrNotFound) {
		return h.err(c, http.StatusNotFound, "flag not found", nil)
	}
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to get flag", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to list flags", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.fail(c, http.StatusInternalServerError, "failed to delete flag", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk answers a question about swap history. A model override builds a
// one-off agent for the request.
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.unavailable(c, "ai")
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.fail(c, http.StatusInternalServerError, "failed to create ai agent", err)
		}
		defer func() { _ = tmp.Close() }()
		agent = tmp
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.fail(c, http.StatusBadGateway, "ai ask failed", err)
	}
	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
