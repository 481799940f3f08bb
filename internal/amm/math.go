package amm

import (
	"errors"
	"math/big"
)

const bpsDenominator = 10000

var (
	ErrInsufficientInputAmount  = errors.New("insufficient input amount")
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	ErrInsufficientReserves     = errors.New("insufficient reserves")
	ErrInvalidFee               = errors.New("fee must be below 10000 bps")
)

var bpsDen = big.NewInt(bpsDenominator)

// GetAmountOut computes the output of a constant-product swap with the fee
// applied to the input:
//
//	amountInWithFee = amountIn * (10000 - feeBps)
//	amountOut = amountInWithFee * reserveOut / (reserveIn*10000 + amountInWithFee)
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if feeBps >= bpsDenominator {
		return nil, ErrInvalidFee
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientReserves
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(bpsDenominator-int(feeBps))))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, bpsDen)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Quo(numerator, denominator), nil
}

// GetAmountIn is the inverse of GetAmountOut, rounded up by one unit so the
// returned input always buys at least amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if feeBps >= bpsDenominator {
		return nil, ErrInvalidFee
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientReserves
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientReserves
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, bpsDen)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, big.NewInt(int64(bpsDenominator-int(feeBps))))

	amountIn := numerator.Quo(numerator, denominator)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}

// ApplySlippage returns the minimum acceptable output for a slippage tolerance.
func ApplySlippage(amountOut *big.Int, slippageBps uint16) *big.Int {
	if amountOut == nil || slippageBps >= bpsDenominator {
		return new(big.Int)
	}
	result := new(big.Int).Mul(amountOut, big.NewInt(int64(bpsDenominator-int(slippageBps))))
	return result.Quo(result, bpsDen)
}

// MaxAmountIn returns the largest input a caller should authorise for an
// exact-output trade under a slippage tolerance.
func MaxAmountIn(amountIn *big.Int, slippageBps uint16) *big.Int {
	if amountIn == nil {
		return new(big.Int)
	}
	result := new(big.Int).Mul(amountIn, big.NewInt(int64(bpsDenominator+int(slippageBps))))
	return result.Quo(result, bpsDen)
}

// CalculateFeeBps converts fee numerator/denominator to basis points
func CalculateFeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	return uint16((feeNumerator * bpsDenominator) / feeDenominator)
}
