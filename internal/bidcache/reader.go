package bidcache

import (
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/users"
	"bitnow-bidding/utils"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is the page size used when a caller does not name one
const DefaultRecentLimit = 20

// LedgerSource is the slice of the ledger the read path falls back to
type LedgerSource interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	RecentBids(ctx context.Context, auctionID string, limit int) ([]model.Bid, error)
}

// Reader serves recent-bid and highest-price queries from the cache, falling
// back to the ledger when the cache is empty or unavailable. It never writes
// the cache; repopulation happens on the next accepted bid.
type Reader struct {
	cache  Cache
	ledger LedgerSource
	names  users.Directory
}

// NewReader creates a Reader. names may be nil.
func NewReader(cache Cache, ledger LedgerSource, names users.Directory) *Reader {
	return &Reader{cache: cache, ledger: ledger, names: names}
}

// ClampLimit bounds limit to [1, MaxRecent]
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxRecent:
		return MaxRecent
	default:
		return limit
	}
}

// PlaceholderName is shown for bidders without a known display name
func PlaceholderName(bidderID string) string {
	return fmt.Sprintf("Bidder %s", utils.ShortID(bidderID, 8))
}

// RecentBids returns up to limit bids newest first, limit clamped to [1, MaxRecent]
func (r *Reader) RecentBids(ctx context.Context, auctionID string, limit int) ([]model.CachedBid, error) {
	limit = ClampLimit(limit)

	cached, err := r.cache.RecentBids(ctx, auctionID, limit)
	if err != nil {
		utils.Warn("bid cache read failed, using ledger", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
	} else if len(cached) > 0 {
		for i := range cached {
			if cached[i].BidderName == "" {
				cached[i].BidderName = PlaceholderName(cached[i].BidderID)
			}
		}
		return cached, nil
	}

	bids, err := r.ledger.RecentBids(ctx, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("cache: ledger recent bids for auction %s: %w", auctionID, err)
	}

	out := make([]model.CachedBid, 0, len(bids))
	for _, b := range bids {
		out = append(out, model.NewCachedBid(b, r.displayName(ctx, b.BidderID)))
	}
	return out, nil
}

// HighestBid returns the highest price, or false when the auction has no bids
func (r *Reader) HighestBid(ctx context.Context, auctionID string) (decimal.Decimal, bool, error) {
	amount, ok, err := r.cache.HighestBid(ctx, auctionID)
	if err != nil {
		utils.Warn("bid cache read failed, using ledger", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
	} else if ok {
		return amount, true, nil
	}

	auction, err := r.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("cache: ledger highest bid for auction %s: %w", auctionID, err)
	}
	if auction.CurrentBid == nil {
		return decimal.Decimal{}, false, nil
	}
	return *auction.CurrentBid, true, nil
}

func (r *Reader) displayName(ctx context.Context, userID string) string {
	if r.names != nil {
		name, err := r.names.DisplayName(ctx, userID)
		if err == nil && name != "" {
			return name
		}
	}
	return PlaceholderName(userID)
}
