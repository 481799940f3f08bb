package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenAmount is a raw integer amount in the token's smallest unit.
type TokenAmount struct {
	Token Token
	Raw   *big.Int
}

// NewTokenAmount copies raw so later mutation by the caller cannot leak in.
func NewTokenAmount(token Token, raw *big.Int) TokenAmount {
	v := new(big.Int)
	if raw != nil {
		v.Set(raw)
	}
	return TokenAmount{Token: token, Raw: v}
}

func ZeroAmount(token Token) TokenAmount {
	return TokenAmount{Token: token, Raw: new(big.Int)}
}

// ParseTokenAmount converts a human-readable decimal string into a TokenAmount.
func ParseTokenAmount(token Token, human string) (TokenAmount, error) {
	raw, err := ParseUnits(human, token.Decimals)
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Token: token, Raw: raw}, nil
}

func (a TokenAmount) value() *big.Int {
	if a.Raw == nil {
		return new(big.Int)
	}
	return a.Raw
}

func (a TokenAmount) IsZero() bool {
	return a.value().Sign() == 0
}

func (a TokenAmount) LessThan(other TokenAmount) bool {
	return a.value().Cmp(other.value()) < 0
}

// EqualTo compares token identity and raw value.
func (a TokenAmount) EqualTo(other TokenAmount) bool {
	return a.Token.Equals(other.Token) && a.value().Cmp(other.value()) == 0
}

func (a TokenAmount) Add(other TokenAmount) (TokenAmount, error) {
	if !a.Token.Equals(other.Token) {
		return TokenAmount{}, fmt.Errorf("token mismatch: %s vs %s", a.Token, other.Token)
	}
	return TokenAmount{Token: a.Token, Raw: new(big.Int).Add(a.value(), other.value())}, nil
}

func (a TokenAmount) Sub(other TokenAmount) (TokenAmount, error) {
	if !a.Token.Equals(other.Token) {
		return TokenAmount{}, fmt.Errorf("token mismatch: %s vs %s", a.Token, other.Token)
	}
	return TokenAmount{Token: a.Token, Raw: new(big.Int).Sub(a.value(), other.value())}, nil
}

// Exact renders the amount with the token's full precision.
func (a TokenAmount) Exact() string {
	return FormatUnits(a.value(), a.Token.Decimals)
}

func (a TokenAmount) String() string {
	return a.Exact() + " " + a.Token.Symbol
}

// FormatUnits renders a raw integer as a decimal string with trailing zeros trimmed.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

const (
	// maxAmountBits is the width of an on-chain uint256.
	maxAmountBits = 256
	// maxAmountLen bounds the text handed to the decimal parser.
	maxAmountLen = 512
)

// ParseUnits converts a plain decimal string into smallest units. More
// fractional digits than the token supports is an error rather than a silent
// truncation. Exponent notation is rejected and the result must fit a uint256.
func ParseUnits(human string, decimals uint8) (*big.Int, error) {
	human = strings.TrimSpace(human)
	if human == "" {
		return new(big.Int), nil
	}
	if len(human) > maxAmountLen {
		return nil, fmt.Errorf("invalid amount: longer than %d characters", maxAmountLen)
	}
	if strings.ContainsAny(human, "eE") {
		return nil, fmt.Errorf("invalid amount %q: exponent notation not supported", human)
	}
	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", human, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", human)
	}
	if -d.Exponent() > int32(decimals) && !d.Equal(d.Truncate(int32(decimals))) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", human, decimals)
	}
	raw := d.Shift(int32(decimals)).BigInt()
	if raw.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("invalid amount %q: exceeds uint256", human)
	}
	return raw, nil
}
