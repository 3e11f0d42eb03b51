// Package contracts hosts the swap protocol's contract instances: it spawns
// them from templates, routes JSON execute and query calls to the engines,
// settles native funds between instances and applies queued messages
// atomically.
package contracts

import (
	"errors"

	"github.com/JadeSamLee/cosmos-swap/core/types"
)

var (
	ErrUnknownContract   = errors.New("contracts: unknown contract address")
	ErrUnknownTemplate   = errors.New("contracts: unknown template")
	ErrUnknownMethod     = errors.New("contracts: unrecognized message")
	ErrInvalidAmount     = errors.New("contracts: malformed amount")
	ErrInsufficientFunds = errors.New("contracts: insufficient funds")
	ErrDepthExceeded     = errors.New("contracts: message nesting too deep")
)

// Template names for the built-in contracts.
const (
	TemplateSourceEscrow = "src-escrow"
	TemplateDestEscrow   = "dst-escrow"
	TemplateFactory      = "factory"
	TemplateResolver     = "resolver"
	TemplateAuction      = "auction"
	TemplateFillBook     = "fillbook"
	TemplateToken        = "token"
)

// Env carries the block context shared by every call in one transaction. The
// nanosecond time is what deterministic salts are derived from, so it must be
// identical for the resolver and the factory within a call.
type Env struct {
	BlockTime      int64
	BlockTimeNanos int64
	Contract       string
}

// MsgInfo identifies the caller and the native funds attached to a call.
type MsgInfo struct {
	Sender string
	Funds  []types.Coin
}
