package bidcache

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"

	"github.com/shopspring/decimal"
)

// Disabled is a Cache that is always unavailable, forcing the ledger path
type Disabled struct{}

func (Disabled) RecordBid(context.Context, string, model.CachedBid) error {
	return biddingerrors.ErrCacheUnavailable
}

func (Disabled) RecentBids(context.Context, string, int) ([]model.CachedBid, error) {
	return nil, biddingerrors.ErrCacheUnavailable
}

func (Disabled) HighestBid(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Decimal{}, false, biddingerrors.ErrCacheUnavailable
}

// Invalidate has nothing to drop
func (Disabled) Invalidate(context.Context, string) error {
	return nil
}
