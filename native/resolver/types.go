package resolver

import (
	"encoding/json"
	"errors"
	"math/big"
)

var (
	ErrNotFound       = errors.New("resolver: order not found")
	ErrNilState       = errors.New("resolver: state not configured")
	ErrNotInitialized = errors.New("resolver: not initialized")
	ErrUnauthorized   = errors.New("resolver: unauthorized")
	ErrInvalidRelayer = errors.New("resolver: caller is not an allowed relayer")
	ErrEscrowNotBound = errors.New("resolver: order has no escrow address yet")
	ErrOrderClosed    = errors.New("resolver: order already closed")
	ErrInvalidAmount  = errors.New("resolver: order amount must be positive")
)

// OrderStatus is the lifecycle state of a resolver order.
type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderMatched   OrderStatus = "matched"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCompleted, OrderCancelled, OrderExpired:
		return true
	}
	return false
}

// Config holds the resolver owner, the factory it spawns escrows through and
// the relayer allow-list.
type Config struct {
	Owner    string   `json:"owner"`
	Factory  string   `json:"factory"`
	Relayers []string `json:"relayers"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Relayers = append([]string(nil), c.Relayers...)
	return &clone
}

// IsRelayer reports whether addr is on the allow-list.
func (c *Config) IsRelayer(addr string) bool {
	for _, r := range c.Relayers {
		if r == addr {
			return true
		}
	}
	return false
}

// Order mirrors one cross-chain swap the resolver orchestrates. The escrow
// addresses start empty and are bound when the factory reports the spawned
// instances back.
type Order struct {
	ID               string      `json:"id"`
	Maker            string      `json:"maker"`
	Status           OrderStatus `json:"status"`
	SrcEscrowAddress string      `json:"src_escrow_address,omitempty"`
	DstEscrowAddress string      `json:"dst_escrow_address,omitempty"`
	SecretHash       string      `json:"secret_hash"`
	Timelock         int64       `json:"timelock"`
	Amount           *big.Int    `json:"amount"`
	Denom            string      `json:"denom"`
	DstChainID       string      `json:"dst_chain_id,omitempty"`
	DstAsset         string      `json:"dst_asset,omitempty"`

	InitialPrice     *big.Int `json:"initial_price,omitempty"`
	PriceDecayRate   *big.Int `json:"price_decay_rate,omitempty"`
	MinimumPrice     *big.Int `json:"minimum_price,omitempty"`
	AuctionStartTime int64    `json:"auction_start_time,omitempty"`

	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
	FilledAmount      *big.Int `json:"filled_amount"`
	RemainingAmount   *big.Int `json:"remaining_amount"`

	// Opaque limit-order-protocol payload carried for off-chain consumers.
	LopOrderData json.RawMessage `json:"lop_order_data,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// HasAuction reports whether the order snapshot carries a complete decay
// schedule.
func (o *Order) HasAuction() bool {
	return o.InitialPrice != nil && o.PriceDecayRate != nil && o.MinimumPrice != nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Amount = cloneBig(o.Amount)
	clone.InitialPrice = cloneBig(o.InitialPrice)
	clone.PriceDecayRate = cloneBig(o.PriceDecayRate)
	clone.MinimumPrice = cloneBig(o.MinimumPrice)
	clone.MinimumFillAmount = cloneBig(o.MinimumFillAmount)
	clone.FilledAmount = cloneBig(o.FilledAmount)
	clone.RemainingAmount = cloneBig(o.RemainingAmount)
	clone.LopOrderData = append(json.RawMessage(nil), o.LopOrderData...)
	return &clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// PendingLeg names which escrow leg a pending factory salt will bind to.
type PendingLeg string

const (
	LegSource      PendingLeg = "source"
	LegDestination PendingLeg = "destination"
)

// PendingBind links a factory salt to the order leg awaiting its address.
type PendingBind struct {
	OrderID string     `json:"order_id"`
	Leg     PendingLeg `json:"leg"`
}
