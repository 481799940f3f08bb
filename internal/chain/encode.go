package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EncodeApprove encodes approve(spender, amount).
func EncodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, errors.New("approve amount must be non-negative")
	}
	return ERC20ABI.Pack("approve", spender, amount)
}

// RouterSwap describes one constant-product router swap.
// For exact-in swaps Amount is the input and Limit the minimum output;
// for exact-out swaps Amount is the output and Limit the maximum input.
type RouterSwap struct {
	ExactOut  bool
	NativeIn  bool
	NativeOut bool
	Amount    *big.Int
	Limit     *big.Int
	Path      []common.Address
	To        common.Address
	Deadline  *big.Int
}

// EncodeRouterSwap picks the router entry point for the swap shape and returns
// the call data plus the native value to attach.
func EncodeRouterSwap(s RouterSwap) ([]byte, *big.Int, error) {
	if len(s.Path) < 2 {
		return nil, nil, fmt.Errorf("swap path needs at least 2 tokens, got %d", len(s.Path))
	}
	if s.NativeIn && s.NativeOut {
		return nil, nil, errors.New("swap cannot be native on both sides")
	}
	if s.Amount == nil || s.Limit == nil || s.Deadline == nil {
		return nil, nil, errors.New("swap amount, limit and deadline are required")
	}

	zero := new(big.Int)
	switch {
	case !s.ExactOut && s.NativeIn:
		data, err := RouterABI.Pack("swapExactETHForTokens", s.Limit, s.Path, s.To, s.Deadline)
		return data, new(big.Int).Set(s.Amount), err
	case !s.ExactOut && s.NativeOut:
		data, err := RouterABI.Pack("swapExactTokensForETH", s.Amount, s.Limit, s.Path, s.To, s.Deadline)
		return data, zero, err
	case !s.ExactOut:
		data, err := RouterABI.Pack("swapExactTokensForTokens", s.Amount, s.Limit, s.Path, s.To, s.Deadline)
		return data, zero, err
	case s.NativeIn:
		data, err := RouterABI.Pack("swapETHForExactTokens", s.Amount, s.Path, s.To, s.Deadline)
		return data, new(big.Int).Set(s.Limit), err
	case s.NativeOut:
		data, err := RouterABI.Pack("swapTokensForExactETH", s.Amount, s.Limit, s.Path, s.To, s.Deadline)
		return data, zero, err
	default:
		data, err := RouterABI.Pack("swapTokensForExactTokens", s.Amount, s.Limit, s.Path, s.To, s.Deadline)
		return data, zero, err
	}
}
