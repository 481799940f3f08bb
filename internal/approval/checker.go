package approval

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// ErrCheckFailed wraps allowance read failures. Callers must not treat it as
// "no approval needed".
var ErrCheckFailed = errors.New("approval check failed")

// AllowanceReader is the subset of chain.Reader the checker uses.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

type Request struct {
	Owner   common.Address
	Spender common.Address
	Amount  models.TokenAmount // input side, raw units
}

type Checker struct {
	reader AllowanceReader
	logger *logrus.Logger
}

func NewChecker(reader AllowanceReader, logger *logrus.Logger) (*Checker, error) {
	if reader == nil {
		return nil, fmt.Errorf("allowance reader is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Checker{reader: reader, logger: logger}, nil
}

// Check reports whether spender needs an approval before moving Amount.
// Native input and zero amounts never need one and do not touch the chain.
func (c *Checker) Check(ctx context.Context, req Request) (bool, error) {
	if req.Amount.Token.IsNative() || req.Amount.IsZero() {
		return false, nil
	}

	allowance, err := c.reader.Allowance(ctx, req.Amount.Token.Address, req.Owner, req.Spender)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}

	required := allowance.Cmp(req.Amount.Raw) < 0
	c.logger.WithFields(logrus.Fields{
		"token":     req.Amount.Token.Symbol,
		"allowance": allowance.String(),
		"amount":    req.Amount.Raw.String(),
		"required":  required,
	}).Debug("approval checked")
	return required, nil
}
