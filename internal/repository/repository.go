package repository

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"fmt"
	"sync"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// DecideFunc inspects the auction as locked by the ledger and returns the bid to
// append. Returning an error aborts the write with no state change.
type DecideFunc func(auction model.Auction) (model.Bid, error)

// Ledger is the authoritative store of auctions and bids
type Ledger interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	// Apply runs decide against the latest auction state and commits the returned
	// bid together with the price and bid count update as one atomic unit.
	// Concurrent Apply calls on the same auction are serialized.
	Apply(ctx context.Context, auctionID string, decide DecideFunc) (model.Auction, model.Bid, error)
	// RecentBids returns up to limit bids, newest first.
	RecentBids(ctx context.Context, auctionID string, limit int) ([]model.Bid, error)
}

type auctionRow struct {
	mu      sync.Mutex
	auction model.Auction
	bids    []model.Bid // append-only, oldest first
}

// MemoryLedger is a concurrency-safe in-memory implementation of Ledger
type MemoryLedger struct {
	mu       sync.RWMutex
	auctions map[string]*auctionRow
}

// NewMemoryLedger creates a new in-memory ledger instance
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		auctions: make(map[string]*auctionRow),
	}
}

func (r *MemoryLedger) row(auctionID string) (*auctionRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return row, nil
}

// GetAuction returns a snapshot of the auction
func (r *MemoryLedger) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	row, err := r.row(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	row.mu.Lock()
	defer row.mu.Unlock()
	return row.auction, nil
}

// Apply holds the auction's lock across decide and commit
func (r *MemoryLedger) Apply(ctx context.Context, auctionID string, decide DecideFunc) (model.Auction, model.Bid, error) {
	row, err := r.row(auctionID)
	if err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	row.mu.Lock()
	defer row.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	bid, err := decide(row.auction)
	if err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	amount := bid.Amount
	row.bids = append(row.bids, bid)
	row.auction.CurrentBid = &amount
	row.auction.BidCount++
	row.auction.LeadingBidderID = bid.BidderID

	return row.auction, bid, nil
}

// RecentBids returns up to limit bids for an auction, newest first
func (r *MemoryLedger) RecentBids(_ context.Context, auctionID string, limit int) ([]model.Bid, error) {
	row, err := r.row(auctionID)
	if err != nil {
		return nil, err
	}

	row.mu.Lock()
	defer row.mu.Unlock()

	n := max(min(limit, len(row.bids)), 0)
	out := make([]model.Bid, 0, n)
	for i := len(row.bids) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, row.bids[i])
	}
	return out, nil
}

// AddAuction adds or replaces an auction. Auction lifecycle is managed elsewhere;
// this is used for seeding and tests.
func (r *MemoryLedger) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = &auctionRow{auction: auction}
}

// SetStatus changes an auction's status
func (r *MemoryLedger) SetStatus(auctionID string, status model.AuctionStatus) error {
	row, err := r.row(auctionID)
	if err != nil {
		return err
	}

	row.mu.Lock()
	defer row.mu.Unlock()
	row.auction.Status = status
	return nil
}
