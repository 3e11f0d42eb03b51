package partialfill

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/JadeSamLee/cosmos-swap/core/events"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/crypto"
	"github.com/JadeSamLee/cosmos-swap/native/pricing"
)

var (
	ErrNotFound       = errors.New("partialfill: order not found")
	ErrNilState       = errors.New("partialfill: state not configured")
	ErrUnauthorized   = errors.New("partialfill: unauthorized")
	ErrOrderExists    = errors.New("partialfill: order id already taken")
	ErrOrderInactive  = errors.New("partialfill: order inactive")
	ErrInvalidOrder   = errors.New("partialfill: invalid order parameters")
	ErrInvalidFill    = errors.New("partialfill: invalid fill amount")
	ErrInvalidFunds   = errors.New("partialfill: invalid payment funds")
	ErrPartialBlocked = errors.New("partialfill: order requires a full fill")
)

// Order is a maker's standing offer to sell AssetAmount of AssetDenom at
// PricePerUnit of PaymentDenom, optionally fillable in parts.
type Order struct {
	ID           string   `json:"id"`
	Maker        string   `json:"maker"`
	Taker        string   `json:"taker,omitempty"`
	AssetDenom   string   `json:"asset_denom"`
	AssetAmount  *big.Int `json:"asset_amount"`
	PaymentDenom string   `json:"payment_denom"`
	PricePerUnit *big.Int `json:"price_per_unit"`

	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
	FilledAmount      *big.Int `json:"filled_amount"`
	RemainingAmount   *big.Int `json:"remaining_amount"`

	Active    bool  `json:"active"`
	CreatedAt int64 `json:"created_at"`
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.AssetAmount = cloneBig(o.AssetAmount)
	clone.PricePerUnit = cloneBig(o.PricePerUnit)
	clone.MinimumFillAmount = cloneBig(o.MinimumFillAmount)
	clone.FilledAmount = cloneBig(o.FilledAmount)
	clone.RemainingAmount = cloneBig(o.RemainingAmount)
	return &clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// State is the storage surface the order book engine depends on.
type State interface {
	FillOrderPut(*Order) error
	FillOrderGet(id string) (*Order, bool)
}

// OrderParams carries the creation arguments for an order.
type OrderParams struct {
	ID                string   `json:"id"`
	Maker             string   `json:"maker"`
	AssetDenom        string   `json:"asset_denom"`
	PaymentDenom      string   `json:"payment_denom"`
	PricePerUnit      *big.Int `json:"price_per_unit"`
	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
}

// Engine applies the maker/taker fill book against external state.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
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

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) load(id string) (*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	order, ok := e.state.FillOrderGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return order, nil
}

// CreateOrder escrows the maker's funds as a standing offer. The order id
// must be unused and the deposited funds carry the asset being sold.
func (e *Engine) CreateOrder(caller string, funds []types.Coin, p OrderParams) (*Order, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	maker, err := crypto.NormalizeAddress(p.Maker)
	if err != nil {
		return nil, fmt.Errorf("partialfill: maker: %w", err)
	}
	if caller != maker {
		return nil, ErrUnauthorized
	}
	if p.ID == "" || p.PaymentDenom == "" || p.PricePerUnit == nil || p.PricePerUnit.Sign() <= 0 {
		return nil, ErrInvalidOrder
	}
	if _, exists := e.state.FillOrderGet(p.ID); exists {
		return nil, ErrOrderExists
	}
	if len(funds) != 1 || funds[0].Denom != p.AssetDenom || funds[0].Amount == nil || funds[0].Amount.Sign() <= 0 {
		return nil, ErrInvalidFunds
	}

	order := &Order{
		ID:                p.ID,
		Maker:             maker,
		AssetDenom:        p.AssetDenom,
		AssetAmount:       new(big.Int).Set(funds[0].Amount),
		PaymentDenom:      p.PaymentDenom,
		PricePerUnit:      new(big.Int).Set(p.PricePerUnit),
		AllowPartialFill:  p.AllowPartialFill,
		MinimumFillAmount: cloneBig(p.MinimumFillAmount),
		FilledAmount:      big.NewInt(0),
		RemainingAmount:   new(big.Int).Set(funds[0].Amount),
		Active:            true,
		CreatedAt:         e.nowFn(),
	}
	if err := e.state.FillOrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderCreatedEvent(order))
	return order.Clone(), nil
}

// Fill buys amount units from the order. The payment must cover
// amount * price; any excess is refunded to the taker. The first fill pins
// the taker, and the order deactivates when drained.
func (e *Engine) Fill(id, caller string, funds []types.Coin, amount *big.Int) ([]types.Msg, error) {
	order, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if !order.Active {
		return nil, ErrOrderInactive
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidFill
	}
	if !order.AllowPartialFill && amount.Cmp(order.RemainingAmount) != 0 {
		return nil, ErrPartialBlocked
	}
	if amount.Cmp(order.RemainingAmount) > 0 {
		return nil, ErrInvalidFill
	}
	if order.MinimumFillAmount != nil && amount.Cmp(order.MinimumFillAmount) < 0 && amount.Cmp(order.RemainingAmount) != 0 {
		return nil, ErrInvalidFill
	}
	if order.Taker != "" && caller != order.Taker {
		return nil, ErrUnauthorized
	}
	if len(funds) != 1 || funds[0].Denom != order.PaymentDenom || funds[0].Amount == nil {
		return nil, ErrInvalidFunds
	}

	cost := new(big.Int).Mul(amount, order.PricePerUnit)
	paid := funds[0].Amount
	if paid.Cmp(cost) < 0 {
		return nil, ErrInvalidFunds
	}

	msgs := []types.Msg{
		types.SendMsg{
			ToAddress: order.Maker,
			Amount:    []types.Coin{types.NewCoin(order.PaymentDenom, cost)},
		},
		types.SendMsg{
			ToAddress: caller,
			Amount:    []types.Coin{types.NewCoin(order.AssetDenom, amount)},
		},
	}
	if excess := new(big.Int).Sub(paid, cost); excess.Sign() > 0 {
		msgs = append(msgs, types.SendMsg{
			ToAddress: caller,
			Amount:    []types.Coin{types.NewCoin(order.PaymentDenom, excess)},
		})
	}

	ledger := pricing.FillLedger{
		Total:     order.AssetAmount,
		Filled:    order.FilledAmount,
		Remaining: order.RemainingAmount,
	}
	if err := ledger.Apply(amount); err != nil {
		return nil, ErrInvalidFill
	}
	order.FilledAmount = ledger.Filled
	order.RemainingAmount = ledger.Remaining
	if order.Taker == "" {
		order.Taker = caller
	}
	if ledger.Exhausted() {
		order.Active = false
	}
	if err := e.state.FillOrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderFilledEvent(order, caller, amount))
	return msgs, nil
}

// CancelOrder deactivates the order and returns the remaining asset to the
// maker. Maker only.
func (e *Engine) CancelOrder(id, caller string) ([]types.Msg, error) {
	order, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if !order.Active {
		return nil, ErrOrderInactive
	}
	if caller != order.Maker {
		return nil, ErrUnauthorized
	}

	var msgs []types.Msg
	if order.RemainingAmount.Sign() > 0 {
		msgs = append(msgs, types.SendMsg{
			ToAddress: order.Maker,
			Amount:    []types.Coin{types.NewCoin(order.AssetDenom, order.RemainingAmount)},
		})
	}
	order.Active = false
	if err := e.state.FillOrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderCancelledEvent(order))
	return msgs, nil
}

// StatusView reports the fill accounting of an order.
type StatusView struct {
	Active          bool     `json:"active"`
	FilledAmount    *big.Int `json:"filled_amount"`
	RemainingAmount *big.Int `json:"remaining_amount"`
	FillPercentage  uint64   `json:"fill_percentage"`
}

// OrderStatus returns the fill accounting view for id.
func (e *Engine) OrderStatus(id string) (StatusView, error) {
	order, err := e.load(id)
	if err != nil {
		return StatusView{}, err
	}
	ledger := pricing.FillLedger{
		Total:     order.AssetAmount,
		Filled:    order.FilledAmount,
		Remaining: order.RemainingAmount,
	}
	return StatusView{
		Active:          order.Active,
		FilledAmount:    cloneBig(order.FilledAmount),
		RemainingAmount: cloneBig(order.RemainingAmount),
		FillPercentage:  ledger.Percentage(),
	}, nil
}

// GetOrder returns a copy of the stored order.
func (e *Engine) GetOrder(id string) (*Order, error) {
	order, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}
