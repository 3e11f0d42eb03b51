package factory

import (
	"strconv"

	"github.com/JadeSamLee/cosmos-swap/core/types"
)

const (
	EventTypeEscrowRequested = "factory.escrow.requested"
	EventTypeEscrowCreated   = "factory.escrow.created"
)

func NewEscrowRequestedEvent(r *EscrowRecord) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowRequested,
		Attributes: map[string]string{
			"salt":           r.Salt,
			"kind":           string(r.Kind),
			"creator":        r.Creator,
			"label":          r.Label,
			"correlation_id": strconv.FormatUint(r.CorrelationID, 10),
		},
	}
}

func NewEscrowCreatedEvent(r *EscrowRecord) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowCreated,
		Attributes: map[string]string{
			"salt":           r.Salt,
			"kind":           string(r.Kind),
			"address":        r.Address,
			"correlation_id": strconv.FormatUint(r.CorrelationID, 10),
		},
	}
}
