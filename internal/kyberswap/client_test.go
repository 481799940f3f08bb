package kyberswap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routeSummaryJSON = `{"tokenIn":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee","amountIn":"1000000000000000000","tokenOut":"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913","amountOut":"3012345678","gas":"180000","routeID":"abc","checksum":"123","timestamp":1700000000,"route":[[{"pool":"0xpool","tokenIn":"0xeeee","tokenOut":"0x8335","swapAmount":"1000000000000000000","amountOut":"3012345678","exchange":"uniswap-v2","poolType":"uniswap-v2"}]]}`

func TestClient_GetRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/base/api/v1/routes", r.URL.Path)
		assert.Equal(t, "1000000000000000000", r.URL.Query().Get("amountIn"))
		assert.Equal(t, "test-client", r.Header.Get("x-client-id"))
		_, _ = io.WriteString(w, `{"code":0,"message":"successfully","data":{"routeSummary":`+routeSummaryJSON+`,"routerAddress":"0x6131B5fae19EA4f9D964eAc0408E4408b66337b5"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-client", 0)
	route, err := c.GetRoute(context.Background(), RouteRequest{
		Chain:    "base",
		TokenIn:  "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
		TokenOut: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		AmountIn: "1000000000000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "3012345678", route.Summary.AmountOut)
	assert.Equal(t, "uniswap-v2", route.Summary.Route[0][0].Exchange)
	assert.Equal(t, "0x6131B5fae19EA4f9D964eAc0408E4408b66337b5", route.RouterAddress)
	// Fields the engine does not model survive in the raw summary.
	assert.Contains(t, string(route.RawSummary), `"checksum":"123"`)
}

func TestClient_GetRoute_Validation(t *testing.T) {
	c := NewClient("http://unused", "", 0)
	_, err := c.GetRoute(context.Background(), RouteRequest{Chain: "base", TokenIn: "a", TokenOut: "b"})
	assert.Error(t, err)
}

func TestClient_BuildRoute_ForwardsSummaryUnmodified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/base/api/v1/route/build", r.URL.Path)

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, routeSummaryJSON, string(body["routeSummary"]))
		assert.Equal(t, "50", string(body["slippageTolerance"]))
		assert.Equal(t, `"0x0000000000000000000000000000000000000001"`, string(body["recipient"]))

		_, _ = io.WriteString(w, `{"code":0,"message":"successfully","data":{"amountIn":"1000000000000000000","amountOut":"3012345678","gas":"190000","data":"0xe21fd0e9","routerAddress":"0x6131B5fae19EA4f9D964eAc0408E4408b66337b5","transactionValue":"1000000000000000000"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	enc, err := c.BuildRoute(context.Background(), BuildRequest{
		Chain:       "base",
		RawSummary:  json.RawMessage(routeSummaryJSON),
		Sender:      "0x0000000000000000000000000000000000000001",
		SlippageBps: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xe21fd0e9", enc.Data)
	assert.Equal(t, "1000000000000000000", enc.TransactionValue)
}

func TestClient_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream down")
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", 0).GetRoute(context.Background(), RouteRequest{Chain: "base", TokenIn: "a", TokenOut: "b", AmountIn: "1"})
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.Contains(t, httpErr.Error(), "upstream down")
	})

	t.Run("envelope code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"code":4008,"message":"route not found"}`)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", 0).GetRoute(context.Background(), RouteRequest{Chain: "base", TokenIn: "a", TokenOut: "b", AmountIn: "1"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 4008, apiErr.Code)
	})
}
