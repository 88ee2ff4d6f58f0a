package bidding

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// validateRequest checks input shape before any state is read
func validateRequest(auctionID, bidderID string, amount decimal.Decimal) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !model.HasMoneyScale(amount) {
		return fmt.Errorf("service: %w - amount %s has more than %d decimal places", biddingerrors.ErrInvalidBid, amount.String(), model.MoneyScale)
	}
	return nil
}

// ValidateBid checks the bidding preconditions against the latest auction state,
// in order: active status, end time, price. A non-positive amount is too low.
func ValidateBid(auction model.Auction, amount decimal.Decimal, now time.Time) error {
	if auction.Status != model.AuctionActive {
		return fmt.Errorf("service: %w - status is %s", biddingerrors.ErrAuctionNotActive, auction.Status)
	}
	if !now.Before(auction.EndTime) {
		return fmt.Errorf("service: %w - ended at %s", biddingerrors.ErrAuctionEnded, auction.EndTime.UTC().Format(time.RFC3339))
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - amount must be positive", biddingerrors.ErrBidTooLow)
	}
	if auction.CurrentBid != nil {
		if amount.LessThanOrEqual(*auction.CurrentBid) {
			return fmt.Errorf("service: %w - current highest bid is %s", biddingerrors.ErrBidTooLow, auction.CurrentBid.String())
		}
		return nil
	}
	if amount.LessThan(auction.StartingBid) {
		return fmt.Errorf("service: %w - starting bid is %s", biddingerrors.ErrBidTooLow, auction.StartingBid.String())
	}
	return nil
}
