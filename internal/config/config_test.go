package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAIN_ID", "")
	t.Setenv("AMOUNT_DEBOUNCE", "")

	cfg := Load()
	assert.Equal(t, uint64(8453), cfg.ChainID)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, uint16(50), cfg.SlippageBps)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAIN_ID", "84532")
	t.Setenv("SLIPPAGE_BPS", "125")
	t.Setenv("AMOUNT_DEBOUNCE", "250ms")
	t.Setenv("DEV_MODE", "true")

	cfg := Load()
	assert.Equal(t, uint64(84532), cfg.ChainID)
	assert.Equal(t, uint16(125), cfg.SlippageBps)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.True(t, cfg.DevMode)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHAIN_ID", "base")
	t.Setenv("SWAP_DEADLINE", "soon")

	cfg := Load()
	assert.Equal(t, uint64(8453), cfg.ChainID)
	assert.Equal(t, 20*time.Minute, cfg.SwapDeadline)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.SlippageBps = 10000
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.RPCUrl = " "
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.ChainID = 0
	assert.Error(t, cfg.Validate())
}
