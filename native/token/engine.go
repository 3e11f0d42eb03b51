package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
)

var (
	ErrNotFound          = errors.New("token: not found")
	ErrNilState          = errors.New("token: state not configured")
	ErrInvalidAmount     = errors.New("token: amount must be positive")
	ErrInsufficientFunds = errors.New("token: insufficient balance")
)

// Info describes one token instance.
type Info struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Balance seeds an initial holding at instantiation.
type Balance struct {
	Address string   `json:"address"`
	Amount  *big.Int `json:"amount"`
}

// Params carries the instantiation arguments for a token.
type Params struct {
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Decimals        uint8     `json:"decimals"`
	InitialBalances []Balance `json:"initial_balances"`
}

// ReceiveMsg is the envelope a recipient contract gets when tokens are sent
// to it with an attached message.
type ReceiveMsg struct {
	Sender string          `json:"sender"`
	Amount string          `json:"amount"`
	Msg    json.RawMessage `json:"msg,omitempty"`
}

// State is the storage surface the token engine depends on.
type State interface {
	TokenInfoPut(*Info) error
	TokenInfoGet(addr string) (*Info, bool)
	TokenBalancePut(token, holder string, amount *big.Int) error
	TokenBalanceGet(token, holder string) (*big.Int, bool)
}

// Engine is a minimal fungible-token ledger: transfers between holders and
// sends that notify the receiving contract.
type Engine struct {
	state   State
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Instantiate registers a token at addr and seeds the initial balances.
func (e *Engine) Instantiate(addr string, p Params) (*Info, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	info := &Info{
		Address:  addr,
		Name:     p.Name,
		Symbol:   p.Symbol,
		Decimals: p.Decimals,
	}
	if err := e.state.TokenInfoPut(info); err != nil {
		return nil, err
	}
	for _, b := range p.InitialBalances {
		holder, err := crypto.NormalizeAddress(b.Address)
		if err != nil {
			return nil, fmt.Errorf("token: initial balance: %w", err)
		}
		if b.Amount == nil || b.Amount.Sign() < 0 {
			return nil, ErrInvalidAmount
		}
		if err := e.state.TokenBalancePut(addr, holder, new(big.Int).Set(b.Amount)); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// Balance returns the holding of holder, zero when none is recorded.
func (e *Engine) Balance(token, holder string) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	bal, ok := e.state.TokenBalanceGet(token, holder)
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (e *Engine) move(token, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBal, ok := e.state.TokenBalanceGet(token, from)
	if !ok || fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBal, ok := e.state.TokenBalanceGet(token, to)
	if !ok {
		toBal = big.NewInt(0)
	}
	if err := e.state.TokenBalancePut(token, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return e.state.TokenBalancePut(token, to, new(big.Int).Add(toBal, amount))
}

// Transfer moves amount from the caller to another holder.
func (e *Engine) Transfer(token, from, to string, amount *big.Int) error {
	if e.state == nil {
		return ErrNilState
	}
	if _, ok := e.state.TokenInfoGet(token); !ok {
		return ErrNotFound
	}
	if err := e.move(token, from, to, amount); err != nil {
		return err
	}
	e.emitter.Emit(NewTransferEvent(token, from, to, amount))
	return nil
}

// Send moves amount from the caller to a contract and queues the receive
// notification so the contract can act on the deposit.
func (e *Engine) Send(token, from, contract string, amount *big.Int, msg json.RawMessage) ([]types.Msg, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if _, ok := e.state.TokenInfoGet(token); !ok {
		return nil, ErrNotFound
	}
	if err := e.move(token, from, contract, amount); err != nil {
		return nil, err
	}
	receive, err := json.Marshal(struct {
		Receive ReceiveMsg `json:"receive"`
	}{Receive: ReceiveMsg{Sender: from, Amount: amount.String(), Msg: msg}})
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(NewTransferEvent(token, from, contract, amount))
	return []types.Msg{types.ExecMsg{Contract: contract, Msg: receive}}, nil
}

// GetInfo returns the metadata of the token at addr.
func (e *Engine) GetInfo(token string) (*Info, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	info, ok := e.state.TokenInfoGet(token)
	if !ok {
		return nil, ErrNotFound
	}
	clone := *info
	return &clone, nil
}

// NewTransferEvent reports a balance movement.
func NewTransferEvent(token, from, to string, amount *big.Int) *types.Event {
	return &types.Event{
		Type: "token.transfer",
		Attributes: map[string]string{
			"token":  token,
			"from":   from,
			"to":     to,
			"amount": amount.String(),
		},
	}
}
