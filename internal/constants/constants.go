package constants

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// Redis keys
const (
	RedisKeyRecentSwaps    = "swaps:recent"
	RedisKeyPricePrefix    = "price:"
	RedisKeyReservesPrefix = "reserves:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps = "swaps:live"
)

// Limits
const (
	MaxRecentSwaps = 100
	MaxHops        = 3
)

// Swap defaults
const (
	DebounceWindow     = 500 * time.Millisecond
	DefaultSlippageBps = 50
	DefaultDeadline    = 20 * time.Minute
	// Uniswap-V2 style pools charge 30 bps.
	DefaultFeeBps = 30
)

// Feature flags read by the swap orchestrator.
const (
	FlagSimpleMode = "swap.simple_mode"
	FlagSponsorGas = "swap.sponsor_gas"
)

// Chain holds the per-chain addresses and defaults the swap flow needs.
type Chain struct {
	ID            uint64
	Name          string
	AggregatorKey string // chain slug in aggregator URLs
	PricePlatform string // asset platform id for price feeds
	NativePriceID string // price feed id of the native currency
	Native        models.Token
	Wrapped       models.Token
	DefaultIn     models.Token
	DefaultOut    models.Token
	Factory       common.Address
	Router        common.Address
	AggRouter     common.Address
	FeeBps        uint16
	Tokens        []models.Token
}

// Wrap maps the native-currency sentinel to the chain's wrapped ERC-20,
// leaving every other token unchanged.
func (c Chain) Wrap(t models.Token) models.Token {
	if t.IsNative() {
		return c.Wrapped
	}
	return t
}

// TokenByAddress looks a token up in the chain's list.
func (c Chain) TokenByAddress(addr common.Address) (models.Token, bool) {
	for _, t := range c.Tokens {
		if t.Address == addr {
			return t, true
		}
	}
	return models.Token{}, false
}

// TokenBySymbol is case-sensitive; symbols are unique per chain list.
func (c Chain) TokenBySymbol(symbol string) (models.Token, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return models.Token{}, false
}

const (
	BaseMainnet uint64 = 8453
	BaseSepolia uint64 = 84532
)

var kyberRouter = common.HexToAddress("0x6131B5fae19EA4f9D964eAc0408E4408b66337b5")

func baseMainnet() Chain {
	eth := models.NativeToken(BaseMainnet, "ETH", "Ether")
	weth := models.NewToken(BaseMainnet, common.HexToAddress("0x4200000000000000000000000000000000000006"), 18, "WETH", "Wrapped Ether")
	usdc := models.NewToken(BaseMainnet, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), 6, "USDC", "USD Coin")
	dai := models.NewToken(BaseMainnet, common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb"), 18, "DAI", "Dai Stablecoin")
	cbbtc := models.NewToken(BaseMainnet, common.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf"), 8, "cbBTC", "Coinbase Wrapped BTC")

	return Chain{
		ID:            BaseMainnet,
		Name:          "base",
		AggregatorKey: "base",
		PricePlatform: "base",
		NativePriceID: "ethereum",
		Native:        eth,
		Wrapped:       weth,
		DefaultIn:     eth,
		DefaultOut:    usdc,
		Factory:       common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
		Router:        common.HexToAddress("0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24"),
		AggRouter:     kyberRouter,
		FeeBps:        DefaultFeeBps,
		Tokens:        []models.Token{eth, weth, usdc, dai, cbbtc},
	}
}

func baseSepolia() Chain {
	eth := models.NativeToken(BaseSepolia, "ETH", "Sepolia Ether")
	weth := models.NewToken(BaseSepolia, common.HexToAddress("0x4200000000000000000000000000000000000006"), 18, "WETH", "Wrapped Ether")
	usdc := models.NewToken(BaseSepolia, common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"), 6, "USDC", "USD Coin")

	return Chain{
		ID:            BaseSepolia,
		Name:          "base-sepolia",
		AggregatorKey: "base",
		PricePlatform: "base",
		NativePriceID: "ethereum",
		Native:        eth,
		Wrapped:       weth,
		DefaultIn:     eth,
		DefaultOut:    usdc,
		Factory:       common.HexToAddress("0x7Ae58f10f7849cA6F5fB71b7f45CB416c9204b1e"),
		Router:        common.HexToAddress("0x1689E7B1F10000AE47eBfE339a4f69dECd19F602"),
		AggRouter:     kyberRouter,
		FeeBps:        DefaultFeeBps,
		Tokens:        []models.Token{eth, weth, usdc},
	}
}

var chains = map[uint64]Chain{
	BaseMainnet: baseMainnet(),
	BaseSepolia: baseSepolia(),
}

// ChainByID returns the registry entry for a supported chain.
func ChainByID(id uint64) (Chain, error) {
	c, ok := chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("unsupported chain id %d", id)
	}
	return c, nil
}

// SupportedChains lists chain ids in a stable order.
func SupportedChains() []uint64 {
	return []uint64{BaseMainnet, BaseSepolia}
}
