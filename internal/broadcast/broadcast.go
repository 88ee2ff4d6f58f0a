// Package broadcast fans accepted-bid results out to live observers. Delivery
// is best-effort and at most once; failures never reach the bidder.
package broadcast

import (
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/utils"
	"context"
	"errors"
)

// EventBidPlaced is the type of the event emitted for every accepted bid
const EventBidPlaced = "BidPlaced"

// Event is the message delivered on an auction's channel
type Event struct {
	Type      string          `json:"type"`
	AuctionID string          `json:"auction_id"`
	Payload   model.BidResult `json:"payload"`
}

// NewBidPlaced wraps a bid result in a BidPlaced event
func NewBidPlaced(result model.BidResult) Event {
	return Event{Type: EventBidPlaced, AuctionID: result.AuctionID, Payload: result}
}

// Publisher delivers a bid result to the subscribers of an auction's channel.
// Callers invoke Publish in ledger commit order for a given auction.
type Publisher interface {
	Publish(ctx context.Context, auctionID string, result model.BidResult) error
}

// Fanout publishes to several publishers; one failing does not stop the rest
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, auctionID string, result model.BidResult) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, auctionID, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Gateway wraps a Publisher and swallows delivery errors after logging them
type Gateway struct {
	pub Publisher
}

// NewGateway creates a gateway over pub
func NewGateway(pub Publisher) *Gateway {
	return &Gateway{pub: pub}
}

// Publish delivers result and logs any failure
func (g *Gateway) Publish(ctx context.Context, auctionID string, result model.BidResult) {
	if g == nil || g.pub == nil {
		return
	}
	if err := g.pub.Publish(ctx, auctionID, result); err != nil {
		utils.Warn("broadcast: publish failed", map[string]any{
			"auction_id": auctionID,
			"bid_id":     result.PlacedBid.BidID,
			"error":      err.Error(),
		})
	}
}
