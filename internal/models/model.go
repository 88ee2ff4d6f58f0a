package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored for amounts
const MoneyScale = 2

// HasMoneyScale reports whether d is stored without rounding
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// AuctionStatus is the lifecycle state of an auction as seen by the bidding engine
type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionActive    AuctionStatus = "active"
	AuctionSuspended AuctionStatus = "suspended"
	AuctionCompleted AuctionStatus = "completed"
)

// Auction is the priced, time-bounded entity being bid on. The ledger owns it.
type Auction struct {
	AuctionID       string           `json:"auction_id"`
	Status          AuctionStatus    `json:"status"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	StartingBid     decimal.Decimal  `json:"starting_bid"`
	CurrentBid      *decimal.Decimal `json:"current_bid,omitempty"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price,omitempty"`
	BidCount        int              `json:"bid_count"`
	LeadingBidderID string           `json:"leading_bidder_id,omitempty"`
	WinnerID        string           `json:"winner_id,omitempty"`
}

// CurrentPrice returns the current bid, or the starting bid when nobody has bid yet.
func (a Auction) CurrentPrice() decimal.Decimal {
	if a.CurrentBid != nil {
		return *a.CurrentBid
	}
	return a.StartingBid
}

// Bid is an immutable record of one accepted price offer
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	IsAutoBid bool            `json:"is_auto_bid"`
}

// BidResult is returned by every accepted bid and is the payload of BidPlaced events
type BidResult struct {
	AuctionID  string          `json:"auction_id"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	BidCount   int             `json:"bid_count"`
	PlacedBid  Bid             `json:"placed_bid"`
}

// AutoBidAgent is a standing instruction to outbid competitors up to Ceiling
type AutoBidAgent struct {
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CachedBid is a recent-bid entry as kept by the bid cache, with the bidder's
// display name denormalized at write time.
type CachedBid struct {
	BidID      string          `json:"bid_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
	IsAutoBid  bool            `json:"is_auto_bid"`
}

// NewCachedBid converts a ledger bid into a cache entry.
func NewCachedBid(bid Bid, bidderName string) CachedBid {
	return CachedBid{
		BidID:      bid.BidID,
		BidderID:   bid.BidderID,
		BidderName: bidderName,
		Amount:     bid.Amount,
		CreatedAt:  bid.CreatedAt,
		IsAutoBid:  bid.IsAutoBid,
	}
}
