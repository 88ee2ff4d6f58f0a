// Package bidcache is the advisory read path for recent bids and the highest
// price. Nothing here is authoritative; every read can fall back to the ledger.
package bidcache

import (
	model "bitnow-bidding/internal/models"
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MaxRecent bounds the number of bids kept per auction
const MaxRecent = 100

// Cache is a best-effort store of the latest bids per auction
type Cache interface {
	// RecordBid appends bid, trims the auction's list to MaxRecent and overwrites the highest price.
	RecordBid(ctx context.Context, auctionID string, bid model.CachedBid) error
	// RecentBids returns up to limit cached bids, newest first. An empty result means not populated.
	RecentBids(ctx context.Context, auctionID string, limit int) ([]model.CachedBid, error)
	HighestBid(ctx context.Context, auctionID string) (decimal.Decimal, bool, error)
	// Invalidate drops the auction's entry so reads fall back to the ledger
	// until the next RecordBid repopulates it.
	Invalidate(ctx context.Context, auctionID string) error
}

type entry struct {
	bids    []model.CachedBid // oldest first
	highest decimal.Decimal
}

// MemoryCache keeps cache entries in process memory
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*entry)}
}

func (c *MemoryCache) RecordBid(_ context.Context, auctionID string, bid model.CachedBid) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[auctionID]
	if !ok {
		e = &entry{}
		c.entries[auctionID] = e
	}
	e.bids = append(e.bids, bid)
	if over := len(e.bids) - MaxRecent; over > 0 {
		e.bids = append([]model.CachedBid(nil), e.bids[over:]...)
	}
	e.highest = bid.Amount
	return nil
}

func (c *MemoryCache) RecentBids(_ context.Context, auctionID string, limit int) ([]model.CachedBid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[auctionID]
	if !ok {
		return nil, nil
	}
	out := make([]model.CachedBid, 0, max(min(limit, len(e.bids)), 0))
	for i := len(e.bids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.bids[i])
	}
	return out, nil
}

func (c *MemoryCache) HighestBid(_ context.Context, auctionID string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[auctionID]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	return e.highest, true, nil
}

func (c *MemoryCache) Invalidate(_ context.Context, auctionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, auctionID)
	return nil
}
