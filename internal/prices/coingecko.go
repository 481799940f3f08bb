package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrNoPrice means the feed has no USD quote for the asset.
var ErrNoPrice = errors.New("no price available")

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("coingecko http %d", e.StatusCode)
	}
	return fmt.Sprintf("coingecko http %d: %s", e.StatusCode, b)
}

// CoinGecko is a minimal client for the simple price endpoints.
type CoinGecko struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	limiter *rate.Limiter
}

func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &CoinGecko{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP:    &http.Client{Timeout: timeout},
		// public tier allows roughly 30 calls a minute
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

// TokenPrice returns the USD price of an ERC-20 contract on a platform.
func (c *CoinGecko) TokenPrice(ctx context.Context, platform, contract string) (decimal.Decimal, error) {
	contract = strings.ToLower(contract)
	q := url.Values{}
	q.Set("contract_addresses", contract)
	q.Set("vs_currencies", "usd")

	var out map[string]map[string]decimal.Decimal
	if err := c.get(ctx, fmt.Sprintf("/simple/token_price/%s?%s", url.PathEscape(platform), q.Encode()), &out); err != nil {
		return decimal.Zero, err
	}
	return pick(out, contract)
}

// CoinPrice returns the USD price of a coin by feed id (e.g. "ethereum").
func (c *CoinGecko) CoinPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	var out map[string]map[string]decimal.Decimal
	if err := c.get(ctx, "/simple/price?"+q.Encode(), &out); err != nil {
		return decimal.Zero, err
	}
	return pick(out, id)
}

func pick(out map[string]map[string]decimal.Decimal, key string) (decimal.Decimal, error) {
	for k, v := range out {
		if strings.EqualFold(k, key) {
			if usd, ok := v["usd"]; ok {
				return usd, nil
			}
		}
	}
	return decimal.Zero, ErrNoPrice
}

func (c *CoinGecko) get(ctx context.Context, path string, dst interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode coingecko response: %w", err)
	}
	return nil
}
