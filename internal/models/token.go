package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address used for a chain's native currency.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Token describes a fungible asset on one chain. Equality is by (ChainID, Address).
type Token struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
}

func NewToken(chainID uint64, address common.Address, decimals uint8, symbol, name string) Token {
	return Token{ChainID: chainID, Address: address, Decimals: decimals, Symbol: symbol, Name: name}
}

// NativeToken builds the native-currency descriptor for a chain.
func NativeToken(chainID uint64, symbol, name string) Token {
	return Token{ChainID: chainID, Address: NativeAddress, Decimals: 18, Symbol: symbol, Name: name}
}

func (t Token) IsNative() bool {
	return t.Address == NativeAddress
}

func (t Token) IsZero() bool {
	return t.ChainID == 0 && t.Address == (common.Address{})
}

func (t Token) Equals(other Token) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

// SortsBefore reports whether t orders before other by address, the rule
// constant-product pairs use to assign token0/token1.
func (t Token) SortsBefore(other Token) bool {
	return strings.ToLower(t.Address.Hex()) < strings.ToLower(other.Address.Hex())
}

func (t Token) String() string {
	if t.Symbol != "" {
		return fmt.Sprintf("%s(%d:%s)", t.Symbol, t.ChainID, t.Address.Hex())
	}
	return fmt.Sprintf("%d:%s", t.ChainID, t.Address.Hex())
}
