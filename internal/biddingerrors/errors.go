package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrNoBids           = errors.New("no bids found for auction")
	ErrAutoBidNotFound  = errors.New("auto-bid not found")
	ErrCacheUnavailable = errors.New("bid cache unavailable")
)

// business logic errors
var (
	ErrInvalidBid               = errors.New("invalid bid")
	ErrAuctionNotActive         = errors.New("auction is not active")
	ErrAuctionEnded             = errors.New("auction has ended")
	ErrBidTooLow                = errors.New("bid amount too low")
	ErrCeilingBelowCurrentPrice = errors.New("auto-bid ceiling must exceed current price")
)

// rejection kinds surfaced to callers, in match order
var kinds = []struct {
	err  error
	kind string
}{
	{ErrAuctionNotFound, "AuctionNotFound"},
	{ErrAuctionNotActive, "AuctionNotActive"},
	{ErrAuctionEnded, "AuctionEnded"},
	{ErrBidTooLow, "BidTooLow"},
	{ErrCeilingBelowCurrentPrice, "CeilingBelowCurrentPrice"},
	{ErrInvalidBid, "InvalidBid"},
}

// Kind returns the machine-readable rejection kind for a validation error,
// or "" when err is not a validation error.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// IsValidation reports whether err is a user-visible validation error.
func IsValidation(err error) bool {
	return Kind(err) != ""
}
