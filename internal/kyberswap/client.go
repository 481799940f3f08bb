package kyberswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://aggregator-api.kyberswap.com"

type Client struct {
	BaseURL  string
	ClientID string
	HTTP     *http.Client
	limiter  *rate.Limiter
}

func NewClient(baseURL, clientID string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL:  baseURL,
		ClientID: strings.TrimSpace(clientID),
		HTTP:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("kyberswap http %d", e.StatusCode)
	}
	return fmt.Sprintf("kyberswap http %d: %s", e.StatusCode, b)
}

// APIError is a 2xx response whose envelope reports a non-zero code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kyberswap code %d: %s", e.Code, e.Message)
}

// GetRoute asks the aggregator for the best exact-in route.
func (c *Client) GetRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	if strings.TrimSpace(req.Chain) == "" {
		return nil, fmt.Errorf("chain is required")
	}
	if strings.TrimSpace(req.TokenIn) == "" {
		return nil, fmt.Errorf("tokenIn is required")
	}
	if strings.TrimSpace(req.TokenOut) == "" {
		return nil, fmt.Errorf("tokenOut is required")
	}
	if strings.TrimSpace(req.AmountIn) == "" {
		return nil, fmt.Errorf("amountIn is required")
	}

	q := url.Values{}
	q.Set("tokenIn", req.TokenIn)
	q.Set("tokenOut", req.TokenOut)
	q.Set("amountIn", req.AmountIn)
	if len(req.IncludedSources) > 0 {
		q.Set("includedSources", strings.Join(req.IncludedSources, ","))
	}
	if len(req.ExcludedSources) > 0 {
		q.Set("excludedSources", strings.Join(req.ExcludedSources, ","))
	}
	if req.GasInclude != nil {
		q.Set("gasInclude", fmt.Sprintf("%t", *req.GasInclude))
	}

	u := fmt.Sprintf("%s/%s/api/v1/routes?%s", c.BaseURL, url.PathEscape(req.Chain), q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var data routeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode kyberswap route response: %w", err)
	}
	if len(data.RouteSummary) == 0 {
		return nil, fmt.Errorf("kyberswap route response has no routeSummary")
	}
	var summary RouteSummary
	if err := json.Unmarshal(data.RouteSummary, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode kyberswap routeSummary: %w", err)
	}

	return &Route{Summary: summary, RawSummary: data.RouteSummary, RouterAddress: data.RouterAddress}, nil
}

// BuildRoute turns a previously fetched route into router calldata.
// Slippage is forwarded as given and the deadline is not checked here.
func (c *Client) BuildRoute(ctx context.Context, req BuildRequest) (*EncodedRoute, error) {
	if strings.TrimSpace(req.Chain) == "" {
		return nil, fmt.Errorf("chain is required")
	}
	if len(req.RawSummary) == 0 {
		return nil, fmt.Errorf("routeSummary is required")
	}
	if strings.TrimSpace(req.Sender) == "" {
		return nil, fmt.Errorf("sender is required")
	}
	recipient := req.Recipient
	if strings.TrimSpace(recipient) == "" {
		recipient = req.Sender
	}

	b, err := json.Marshal(buildBody{
		RouteSummary:      req.RawSummary,
		Sender:            req.Sender,
		Recipient:         recipient,
		SlippageTolerance: req.SlippageBps,
		Deadline:          req.Deadline,
		Source:            req.Source,
	})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s/api/v1/route/build", c.BaseURL, url.PathEscape(req.Chain))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var out EncodedRoute
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode kyberswap build response: %w", err)
	}
	return &out, nil
}

func (c *Client) do(httpReq *http.Request) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(httpReq.Context()); err != nil {
			return nil, err
		}
	}
	httpReq.Header.Set("accept", "application/json")
	if c.ClientID != "" {
		httpReq.Header.Set("x-client-id", c.ClientID)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode kyberswap response: %w", err)
	}
	if env.Code != 0 {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
	return env.Data, nil
}
