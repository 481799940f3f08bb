package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
)

var ErrNotFound = errors.New("flag not found")

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults are the swap flags seeded on first start. Simple mode routes
// through the aggregator; gas sponsorship attaches the paymaster capability.
var Defaults = map[string]bool{
	constants.FlagSimpleMode: false,
	constants.FlagSponsorGas: false,
}
