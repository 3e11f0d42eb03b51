package partialfill

import (
	"math/big"

	"github.com/JadeSamLee/cosmos-swap/core/types"
)

const (
	EventTypeOrderCreated   = "fillbook.order.created"
	EventTypeOrderFilled    = "fillbook.order.filled"
	EventTypeOrderCancelled = "fillbook.order.cancelled"
)

func NewOrderCreatedEvent(o *Order) *types.Event {
	return &types.Event{
		Type: EventTypeOrderCreated,
		Attributes: map[string]string{
			"order_id":     o.ID,
			"maker":        o.Maker,
			"asset_denom":  o.AssetDenom,
			"asset_amount": o.AssetAmount.String(),
			"price":        o.PricePerUnit.String(),
		},
	}
}

func NewOrderFilledEvent(o *Order, taker string, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeOrderFilled,
		Attributes: map[string]string{
			"order_id":  o.ID,
			"taker":     taker,
			"amount":    amount.String(),
			"filled":    o.FilledAmount.String(),
			"remaining": o.RemainingAmount.String(),
		},
	}
}

func NewOrderCancelledEvent(o *Order) *types.Event {
	return &types.Event{
		Type: EventTypeOrderCancelled,
		Attributes: map[string]string{
			"order_id":  o.ID,
			"maker":     o.Maker,
			"remaining": o.RemainingAmount.String(),
		},
	}
}
