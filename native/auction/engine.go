package auction

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
	ErrNotFound       = errors.New("auction: not found")
	ErrNilState       = errors.New("auction: state not configured")
	ErrUnauthorized   = errors.New("auction: unauthorized")
	ErrClosed         = errors.New("auction: already ended")
	ErrBidTooLow      = errors.New("auction: bid below current price")
	ErrInvalidFunds   = errors.New("auction: invalid bid funds")
	ErrInvalidParams  = errors.New("auction: invalid parameters")
	ErrNothingToClose = errors.New("auction: no bid and not yet expired")
)

// Status is the lifecycle state of an auction.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Auction is a single-asset sale with a linearly decaying ask. The highest
// standing bid at or above the current price wins when the seller closes.
type Auction struct {
	Address      string   `json:"address"`
	Seller       string   `json:"seller"`
	AssetDenom   string   `json:"asset_denom"`
	AssetAmount  *big.Int `json:"asset_amount"`
	PaymentDenom string   `json:"payment_denom"`

	InitialPrice   *big.Int `json:"initial_price"`
	PriceDecayRate *big.Int `json:"price_decay_rate"`
	MinimumPrice   *big.Int `json:"minimum_price"`
	StartTime      int64    `json:"start_time"`
	EndTime        int64    `json:"end_time"`

	HighestBidder string   `json:"highest_bidder,omitempty"`
	HighestBid    *big.Int `json:"highest_bid,omitempty"`
	Status        Status   `json:"status"`
}

func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.AssetAmount = cloneBig(a.AssetAmount)
	clone.InitialPrice = cloneBig(a.InitialPrice)
	clone.PriceDecayRate = cloneBig(a.PriceDecayRate)
	clone.MinimumPrice = cloneBig(a.MinimumPrice)
	clone.HighestBid = cloneBig(a.HighestBid)
	return &clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// State is the storage surface the auction engine depends on.
type State interface {
	AuctionPut(*Auction) error
	AuctionGet(addr string) (*Auction, bool)
}

// Params carries the instantiation arguments for an auction.
type Params struct {
	Seller       string   `json:"seller"`
	AssetDenom   string   `json:"asset_denom"`
	AssetAmount  *big.Int `json:"asset_amount"`
	PaymentDenom string   `json:"payment_denom"`

	InitialPrice   *big.Int `json:"initial_price"`
	PriceDecayRate *big.Int `json:"price_decay_rate"`
	MinimumPrice   *big.Int `json:"minimum_price"`
	Duration       int64    `json:"duration"`
}

// Engine applies the Dutch auction state machine against external state.
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

func (e *Engine) load(addr string) (*Auction, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	a, ok := e.state.AuctionGet(addr)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Instantiate opens an auction at addr. The asset amount, the decay schedule
// and a positive duration are required.
func (e *Engine) Instantiate(addr string, p Params) (*Auction, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	seller, err := crypto.NormalizeAddress(p.Seller)
	if err != nil {
		return nil, fmt.Errorf("auction: seller: %w", err)
	}
	if p.AssetAmount == nil || p.AssetAmount.Sign() <= 0 || p.AssetDenom == "" || p.PaymentDenom == "" {
		return nil, ErrInvalidParams
	}
	if p.Duration <= 0 {
		return nil, ErrInvalidParams
	}
	now := e.nowFn()
	if _, err := pricing.NewDecaySchedule(p.InitialPrice, p.MinimumPrice, p.PriceDecayRate, now); err != nil {
		return nil, ErrInvalidParams
	}
	a := &Auction{
		Address:        addr,
		Seller:         seller,
		AssetDenom:     p.AssetDenom,
		AssetAmount:    new(big.Int).Set(p.AssetAmount),
		PaymentDenom:   p.PaymentDenom,
		InitialPrice:   cloneBig(p.InitialPrice),
		PriceDecayRate: cloneBig(p.PriceDecayRate),
		MinimumPrice:   cloneBig(p.MinimumPrice),
		StartTime:      now,
		EndTime:        now + p.Duration,
		Status:         StatusActive,
	}
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionCreatedEvent(a))
	return a.Clone(), nil
}

// CurrentPrice projects the ask at now from the decay schedule.
func (e *Engine) CurrentPrice(addr string, now int64) (*big.Int, error) {
	a, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	sched, err := pricing.NewDecaySchedule(a.InitialPrice, a.MinimumPrice, a.PriceDecayRate, a.StartTime)
	if err != nil {
		return nil, ErrInvalidParams
	}
	return sched.PriceAt(now), nil
}

// Bid places funds as the standing bid. The bid must meet the current ask and
// beat the previous standing bid, which is refunded.
func (e *Engine) Bid(addr, caller string, funds []types.Coin) ([]types.Msg, error) {
	a, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	if a.Status != StatusActive || now >= a.EndTime {
		return nil, ErrClosed
	}
	if len(funds) != 1 || funds[0].Denom != a.PaymentDenom {
		return nil, ErrInvalidFunds
	}
	bid := funds[0].Amount
	if bid == nil || bid.Sign() <= 0 {
		return nil, ErrInvalidFunds
	}

	sched, err := pricing.NewDecaySchedule(a.InitialPrice, a.MinimumPrice, a.PriceDecayRate, a.StartTime)
	if err != nil {
		return nil, ErrInvalidParams
	}
	if bid.Cmp(sched.PriceAt(now)) < 0 {
		return nil, ErrBidTooLow
	}
	if a.HighestBid != nil && bid.Cmp(a.HighestBid) <= 0 {
		return nil, ErrBidTooLow
	}

	var msgs []types.Msg
	if a.HighestBidder != "" {
		msgs = append(msgs, types.SendMsg{
			ToAddress: a.HighestBidder,
			Amount:    []types.Coin{types.NewCoin(a.PaymentDenom, a.HighestBid)},
		})
	}
	a.HighestBidder = caller
	a.HighestBid = new(big.Int).Set(bid)
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewBidPlacedEvent(a))
	return msgs, nil
}

// End closes the auction. With a standing bid the asset goes to the winner
// and the payment to the seller; without one, the seller may reclaim the
// asset once the end time has passed.
func (e *Engine) End(addr, caller string) ([]types.Msg, error) {
	a, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, ErrClosed
	}
	if caller != a.Seller {
		return nil, ErrUnauthorized
	}

	var msgs []types.Msg
	switch {
	case a.HighestBidder != "":
		msgs = append(msgs,
			types.SendMsg{
				ToAddress: a.HighestBidder,
				Amount:    []types.Coin{types.NewCoin(a.AssetDenom, a.AssetAmount)},
			},
			types.SendMsg{
				ToAddress: a.Seller,
				Amount:    []types.Coin{types.NewCoin(a.PaymentDenom, a.HighestBid)},
			},
		)
	case e.nowFn() >= a.EndTime:
		msgs = append(msgs, types.SendMsg{
			ToAddress: a.Seller,
			Amount:    []types.Coin{types.NewCoin(a.AssetDenom, a.AssetAmount)},
		})
	default:
		return nil, ErrNothingToClose
	}

	a.Status = StatusEnded
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionEndedEvent(a))
	return msgs, nil
}

// Get returns a copy of the auction stored at addr.
func (e *Engine) Get(addr string) (*Auction, error) {
	a, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}
