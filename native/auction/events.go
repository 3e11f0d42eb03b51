package auction

import "github.com/JadeSamLee/cosmos-swap/core/types"

const (
	EventTypeCreated   = "auction.created"
	EventTypeBidPlaced = "auction.bid_placed"
	EventTypeEnded     = "auction.ended"
)

func NewAuctionCreatedEvent(a *Auction) *types.Event {
	return &types.Event{
		Type: EventTypeCreated,
		Attributes: map[string]string{
			"address":       a.Address,
			"seller":        a.Seller,
			"asset_denom":   a.AssetDenom,
			"asset_amount":  a.AssetAmount.String(),
			"initial_price": a.InitialPrice.String(),
		},
	}
}

func NewBidPlacedEvent(a *Auction) *types.Event {
	return &types.Event{
		Type: EventTypeBidPlaced,
		Attributes: map[string]string{
			"address": a.Address,
			"bidder":  a.HighestBidder,
			"bid":     a.HighestBid.String(),
		},
	}
}

func NewAuctionEndedEvent(a *Auction) *types.Event {
	attrs := map[string]string{
		"address": a.Address,
		"seller":  a.Seller,
	}
	if a.HighestBidder != "" {
		attrs["winner"] = a.HighestBidder
		attrs["price"] = a.HighestBid.String()
	}
	return &types.Event{Type: EventTypeEnded, Attributes: attrs}
}
