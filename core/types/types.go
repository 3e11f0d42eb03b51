package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Coin pairs a denomination with an amount. Amounts are always non-negative
// big integers.
type Coin struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

func NewCoin(denom string, amount *big.Int) Coin {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return Coin{Denom: strings.TrimSpace(denom), Amount: new(big.Int).Set(amount)}
}

// Validate reports whether the coin carries a denomination and a non-negative
// amount.
func (c Coin) Validate() error {
	if strings.TrimSpace(c.Denom) == "" {
		return fmt.Errorf("coin: empty denomination")
	}
	if c.Amount == nil || c.Amount.Sign() < 0 {
		return fmt.Errorf("coin: negative or missing amount")
	}
	return nil
}

// Event represents a structured state change emitted by an engine.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Msg is an outbound effect queued by a contract execution. Messages only take
// effect after the triggering call succeeds; a failed call discards the queue.
type Msg interface {
	isMsg()
}

// SendMsg transfers native coins from the emitting instance to a recipient.
type SendMsg struct {
	ToAddress string `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

// TokenTransferMsg moves delegated-asset balances held by a token contract.
type TokenTransferMsg struct {
	Contract  string   `json:"contract"`
	Recipient string   `json:"recipient"`
	Amount    *big.Int `json:"amount"`
}

// ExecMsg invokes another instance with the emitting instance as caller.
type ExecMsg struct {
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    []Coin          `json:"funds,omitempty"`
}

// InstantiateMsg asks the host to spawn a new instance from a registered
// template. The correlation id ties the asynchronous creation result back to
// the originating request.
type InstantiateMsg struct {
	Template      string          `json:"template"`
	Msg           json.RawMessage `json:"msg"`
	Label         string          `json:"label"`
	CorrelationID uint64          `json:"correlation_id"`
}

func (SendMsg) isMsg()          {}
func (TokenTransferMsg) isMsg() {}
func (ExecMsg) isMsg()          {}
func (InstantiateMsg) isMsg()   {}
