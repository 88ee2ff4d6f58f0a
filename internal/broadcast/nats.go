package broadcast

import (
	model "bitnow-bidding/internal/models"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsConn is the part of *nats.Conn the publisher uses
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher forwards BidPlaced events to other services on core NATS,
// subject bid_events.<auctionID>
type NATSPublisher struct {
	conn natsConn
}

// NewNATSPublisher wraps an established connection
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Subject returns the NATS subject for an auction
func Subject(auctionID string) string {
	return fmt.Sprintf("bid_events.%s", auctionID)
}

func (p *NATSPublisher) Publish(_ context.Context, auctionID string, result model.BidResult) error {
	data, err := json.Marshal(NewBidPlaced(result))
	if err != nil {
		return fmt.Errorf("broadcast: marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(auctionID), data); err != nil {
		return fmt.Errorf("broadcast: nats publish to %s: %w", Subject(auctionID), err)
	}
	return nil
}
