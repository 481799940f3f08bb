package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

const (
	integrationAddr = "127.0.0.1:8091"
	integrationURL  = "http://" + integrationAddr
	integrationKey  = "test-api-key-integration"
)

// startIntegrationServer serves the API on a real port, backed by Redis DB 2.
func startIntegrationServer(t *testing.T) *cache.RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	logger := logrus.New()
	history := cache.NewRedisCacheFromClient(client, logger)
	flagStore, err := flags.NewStore(client, logger)
	require.NoError(t, err)

	h := newHandlers(t)
	h.History = history
	h.Flags = flagStore
	h.DevMode = true

	srv, err := NewServer(ServerDeps{
		Handlers: h,
		Config:   ServerConfig{Addr: integrationAddr, DevMode: true, APIKey: integrationKey},
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("server error: %v", err)
		}
	}()
	require.Eventually(t, func() bool {
		resp, err := http.Get(integrationURL + "/v1/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return history
}

func call(t *testing.T, method, path string, body any, wantStatus int) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, integrationURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", integrationKey)

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, wantStatus, resp.StatusCode, "%s %s", method, path)
	return resp
}

func TestIntegration_HealthAndAuth(t *testing.T) {
	startIntegrationServer(t)

	resp := call(t, http.MethodGet, "/v1/health", nil, http.StatusOK)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.OK)
	assert.Equal(t, "ok", health.Checks["redis"])

	req, err := http.NewRequest(http.MethodGet, integrationURL+"/v1/chains", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "wrong")
	unauth, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer unauth.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauth.StatusCode)
}

func TestIntegration_RecentSwaps(t *testing.T) {
	history := startIntegrationServer(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, history.AddRecentAttempt(ctx, &models.SwapAttempt{
			ID:        id,
			ChainID:   8453,
			Pair:      "ETH/USDC",
			Status:    models.AttemptSubmitted,
			Timestamp: time.Now().UTC(),
		}))
	}

	resp := call(t, http.MethodGet, "/v1/swaps/recent?limit=2", nil, http.StatusOK)
	var body struct {
		Items []*models.SwapAttempt `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "third", body.Items[0].ID)
	assert.Equal(t, "second", body.Items[1].ID)
}

func TestIntegration_FlagsCRUD(t *testing.T) {
	startIntegrationServer(t)

	resp := call(t, http.MethodPost, "/v1/flags", FlagUpsertRequest{Key: "swap.sponsor_gas", Value: true}, http.StatusOK)
	var created flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Value)
	assert.NotZero(t, created.UpdatedAt)

	resp = call(t, http.MethodPut, "/v1/flags/swap.sponsor_gas", FlagUpdateRequest{Value: false}, http.StatusOK)
	var updated flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.False(t, updated.Value)

	resp = call(t, http.MethodGet, "/v1/flags", nil, http.StatusOK)
	var list struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Items, 1)

	call(t, http.MethodDelete, "/v1/flags/swap.sponsor_gas", nil, http.StatusNoContent)
	call(t, http.MethodGet, "/v1/flags/swap.sponsor_gas", nil, http.StatusNotFound)
}
