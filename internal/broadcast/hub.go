package broadcast

import (
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/utils"
	"context"
	"fmt"
	"sync"
)

// DefaultBuffer is the per-subscriber event buffer
const DefaultBuffer = 256

// Hub keeps per-auction subscriber sets in process memory
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Subscription
	buffer   int
}

// Subscription receives the events of one auction channel
type Subscription struct {
	ID        string
	AuctionID string

	events chan Event
	hub    *Hub
	closed bool // guarded by hub.mu
}

// NewHub creates a hub whose subscribers buffer up to buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		channels: make(map[string]map[string]*Subscription),
		buffer:   buffer,
	}
}

// Subscribe joins the channel of auctionID
func (h *Hub) Subscribe(auctionID string) *Subscription {
	sub := &Subscription{
		ID:        utils.GenerateID(),
		AuctionID: auctionID,
		events:    make(chan Event, h.buffer),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[auctionID]
	if !ok {
		subs = make(map[string]*Subscription)
		h.channels[auctionID] = subs
	}
	subs[sub.ID] = sub

	utils.Debug("broadcast: subscriber joined", map[string]any{"auction_id": auctionID, "subscriber_id": sub.ID})
	return sub
}

// Events is closed when the subscription ends
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close leaves the channel. It is safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.events)

	if subs, ok := h.channels[s.AuctionID]; ok {
		delete(subs, s.ID)
		if len(subs) == 0 {
			delete(h.channels, s.AuctionID)
		}
	}
	utils.Debug("broadcast: subscriber left", map[string]any{"auction_id": s.AuctionID, "subscriber_id": s.ID})
}

// SubscriberCount returns the number of subscribers on an auction channel
func (h *Hub) SubscriberCount(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[auctionID])
}

// Publish enqueues a BidPlaced event for every subscriber without blocking.
// A subscriber whose buffer is full is disconnected.
func (h *Hub) Publish(_ context.Context, auctionID string, result model.BidResult) error {
	event := NewBidPlaced(result)

	var slow []*Subscription
	h.mu.RLock()
	for _, sub := range h.channels[auctionID] {
		select {
		case sub.events <- event:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		sub.Close()
	}
	if len(slow) > 0 {
		return fmt.Errorf("broadcast: dropped %d slow subscribers on auction %s", len(slow), auctionID)
	}
	return nil
}
