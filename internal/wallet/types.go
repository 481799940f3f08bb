package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is one entry of an atomic batch.
type Call struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

type PaymasterService struct {
	URL string `json:"url"`
}

type Capabilities struct {
	PaymasterService *PaymasterService `json:"paymasterService,omitempty"`
}

// SendCallsRequest is the single parameter of wallet_sendCalls.
type SendCallsRequest struct {
	Version        string         `json:"version"`
	ChainID        hexutil.Uint64 `json:"chainId"`
	From           common.Address `json:"from"`
	AtomicRequired bool           `json:"atomicRequired"`
	Calls          []Call         `json:"calls"`
	Capabilities   *Capabilities  `json:"capabilities,omitempty"`
}

type SendCallsResult struct {
	ID string `json:"id"`
}

// Batch status codes reported by wallet_getCallsStatus.
const (
	StatusPending        = 100
	StatusConfirmed      = 200
	StatusOffchainFailed = 400
	StatusReverted       = 500
	StatusPartialRevert  = 600
)

type Receipt struct {
	Status          hexutil.Uint64 `json:"status"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	TransactionHash common.Hash    `json:"transactionHash"`
}

type CallsStatus struct {
	Version  string         `json:"version"`
	ID       string         `json:"id"`
	ChainID  hexutil.Uint64 `json:"chainId"`
	Status   int            `json:"status"`
	Atomic   bool           `json:"atomic"`
	Receipts []Receipt      `json:"receipts,omitempty"`
}

// Final reports whether the batch has settled one way or the other.
func (s *CallsStatus) Final() bool {
	return s.Status >= StatusConfirmed
}

func (s *CallsStatus) Succeeded() bool {
	return s.Status == StatusConfirmed
}
