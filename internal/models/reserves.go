package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PairReserves is a snapshot of a constant-product pair's on-chain state.
// It is replaced wholesale on refetch, never mutated.
type PairReserves struct {
	ChainID            uint64         `json:"chainId"`
	Address            common.Address `json:"address"`
	Token0             common.Address `json:"token0"`
	Token1             common.Address `json:"token1"`
	Reserve0           *big.Int       `json:"reserve0"`
	Reserve1           *big.Int       `json:"reserve1"`
	BlockTimestampLast uint32         `json:"blockTimestampLast"`
	FetchedAt          time.Time      `json:"fetchedAt"`
}

// ReserveOf returns the reserve held for token, or nil when the pair does not contain it.
func (p *PairReserves) ReserveOf(token common.Address) *big.Int {
	switch token {
	case p.Token0:
		return p.Reserve0
	case p.Token1:
		return p.Reserve1
	}
	return nil
}
