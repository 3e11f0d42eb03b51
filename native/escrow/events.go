package escrow

import (
	"math/big"
	"strconv"

	"github.com/JadeSamLee/cosmos-swap/core/types"
)

const (
	EventTypeSourceCreated     = "escrow.source.created"
	EventTypeSourceDeposited   = "escrow.source.deposited"
	EventTypeSourceWithdrawn   = "escrow.source.withdrawn"
	EventTypeSourcePartialFill = "escrow.source.partial_fill"
	EventTypeSourceCancelled   = "escrow.source.cancelled"
	EventTypeDestCreated       = "escrow.dest.created"
	EventTypeDestDeposited     = "escrow.dest.deposited"
	EventTypeDestWithdrawn     = "escrow.dest.withdrawn"
	EventTypeDestCancelled     = "escrow.dest.cancelled"
	EventTypeDestConfirmed     = "escrow.dest.src_confirmed"
)

// NewSourceCreatedEvent returns the canonical payload for a newly instantiated
// source escrow.
func NewSourceCreatedEvent(e *SourceEscrow) *types.Event {
	attrs := sourceAttrs(e)
	attrs["timelock"] = strconv.FormatInt(e.Timelock, 10)
	attrs["dst_chain_id"] = e.DstChainID
	return &types.Event{Type: EventTypeSourceCreated, Attributes: attrs}
}

// NewSourceDepositedEvent returns the payload emitted when the maker funds the
// escrow through either asset channel.
func NewSourceDepositedEvent(e *SourceEscrow) *types.Event {
	attrs := sourceAttrs(e)
	attrs["amount"] = e.DepositedAmount.String()
	if e.DepositedDenom != "" {
		attrs["denom"] = e.DepositedDenom
	}
	if e.TokenContract != "" {
		attrs["token_contract"] = e.TokenContract
	}
	return &types.Event{Type: EventTypeSourceDeposited, Attributes: attrs}
}

// NewSourceWithdrawnEvent returns the payload for a full withdrawal.
func NewSourceWithdrawnEvent(e *SourceEscrow, recipient string, amount *big.Int) *types.Event {
	attrs := sourceAttrs(e)
	attrs["recipient"] = recipient
	attrs["amount"] = amount.String()
	return &types.Event{Type: EventTypeSourceWithdrawn, Attributes: attrs}
}

// NewSourcePartialFillEvent returns the payload for one partial fill.
func NewSourcePartialFillEvent(e *SourceEscrow, recipient string, amount *big.Int) *types.Event {
	attrs := sourceAttrs(e)
	attrs["recipient"] = recipient
	attrs["amount"] = amount.String()
	attrs["filled"] = e.FilledAmount.String()
	attrs["remaining"] = e.RemainingAmount.String()
	return &types.Event{Type: EventTypeSourcePartialFill, Attributes: attrs}
}

// NewSourceCancelledEvent returns the payload emitted after a timelock cancel.
func NewSourceCancelledEvent(e *SourceEscrow, returned *big.Int) *types.Event {
	attrs := sourceAttrs(e)
	attrs["returned_amount"] = returned.String()
	return &types.Event{Type: EventTypeSourceCancelled, Attributes: attrs}
}

func NewDestCreatedEvent(e *DestinationEscrow) *types.Event {
	attrs := destAttrs(e)
	attrs["timelock"] = strconv.FormatInt(e.Timelock, 10)
	attrs["src_chain_id"] = e.SrcChainID
	return &types.Event{Type: EventTypeDestCreated, Attributes: attrs}
}

func NewDestDepositedEvent(e *DestinationEscrow) *types.Event {
	attrs := destAttrs(e)
	attrs["amount"] = e.DepositedAmount.String()
	if e.DepositedDenom != "" {
		attrs["denom"] = e.DepositedDenom
	}
	if e.TokenContract != "" {
		attrs["token_contract"] = e.TokenContract
	}
	return &types.Event{Type: EventTypeDestDeposited, Attributes: attrs}
}

func NewDestWithdrawnEvent(e *DestinationEscrow) *types.Event {
	attrs := destAttrs(e)
	attrs["amount"] = e.DepositedAmount.String()
	return &types.Event{Type: EventTypeDestWithdrawn, Attributes: attrs}
}

func NewDestCancelledEvent(e *DestinationEscrow) *types.Event {
	attrs := destAttrs(e)
	attrs["returned_amount"] = e.DepositedAmount.String()
	return &types.Event{Type: EventTypeDestCancelled, Attributes: attrs}
}

func NewDestConfirmedEvent(e *DestinationEscrow) *types.Event {
	attrs := destAttrs(e)
	attrs["src_tx_hash"] = e.SrcTxHash
	attrs["src_block_height"] = strconv.FormatUint(e.SrcBlockHeight, 10)
	return &types.Event{Type: EventTypeDestConfirmed, Attributes: attrs}
}

func sourceAttrs(e *SourceEscrow) map[string]string {
	if e == nil {
		return map[string]string{}
	}
	return map[string]string{
		"address": e.Address,
		"maker":   e.Maker,
		"status":  e.Status.String(),
	}
}

func destAttrs(e *DestinationEscrow) map[string]string {
	if e == nil {
		return map[string]string{}
	}
	return map[string]string{
		"address": e.Address,
		"taker":   e.Taker,
		"maker":   e.Maker,
		"status":  e.Status.String(),
	}
}
