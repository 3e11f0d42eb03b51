package resolver

import "github.com/JadeSamLee/cosmos-swap/core/types"

const (
	EventTypeOrderCreated   = "resolver.order.created"
	EventTypeEscrowBound    = "resolver.order.escrow_bound"
	EventTypeOrderStatus    = "resolver.order.status"
	EventTypeOrderProcessed = "resolver.order.processed"
)

func NewOrderCreatedEvent(o *Order, salt string) *types.Event {
	return &types.Event{
		Type: EventTypeOrderCreated,
		Attributes: map[string]string{
			"order_id": o.ID,
			"maker":    o.Maker,
			"salt":     salt,
		},
	}
}

func NewEscrowBoundEvent(o *Order, leg, addr string) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowBound,
		Attributes: map[string]string{
			"order_id": o.ID,
			"leg":      leg,
			"address":  addr,
		},
	}
}

func NewOrderStatusEvent(o *Order) *types.Event {
	return &types.Event{
		Type: EventTypeOrderStatus,
		Attributes: map[string]string{
			"order_id": o.ID,
			"status":   string(o.Status),
		},
	}
}

func NewOrderProcessedEvent(o *Order, relayer, action, proof string) *types.Event {
	attrs := map[string]string{
		"order_id": o.ID,
		"relayer":  relayer,
		"action":   action,
		"status":   string(o.Status),
	}
	if proof != "" {
		attrs["proof"] = proof
	}
	return &types.Event{Type: EventTypeOrderProcessed, Attributes: attrs}
}
