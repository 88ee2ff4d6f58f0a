package helpers

import (
	model "bitnow-bidding/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	BidderID string           `json:"bidder_id" binding:"required"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
}

type AutoBidRequest struct {
	Ceiling *decimal.Decimal `json:"ceiling" binding:"required"`
}

type BidResultResponse struct {
	AuctionID  string          `json:"auction_id"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	BidCount   int             `json:"bid_count"`
	PlacedBid  BidResponse     `json:"placed_bid"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsAutoBid bool            `json:"is_auto_bid"`
	CreatedAt string          `json:"created_at"`
}

type HighestBidResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

type AutoBidResponse struct {
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type DeactivateResponse struct {
	Deactivated bool `json:"deactivated"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewBidResultResponse converts an engine result for the wire
func NewBidResultResponse(r model.BidResult) BidResultResponse {
	return BidResultResponse{
		AuctionID:  r.AuctionID,
		CurrentBid: r.CurrentBid,
		BidCount:   r.BidCount,
		PlacedBid: BidResponse{
			BidID:     r.PlacedBid.BidID,
			BidderID:  r.PlacedBid.BidderID,
			Amount:    r.PlacedBid.Amount,
			IsAutoBid: r.PlacedBid.IsAutoBid,
			CreatedAt: formatTime(r.PlacedBid.CreatedAt),
		},
	}
}

func NewAutoBidResponse(a model.AutoBidAgent) AutoBidResponse {
	return AutoBidResponse{
		AuctionID: a.AuctionID,
		UserID:    a.UserID,
		Ceiling:   a.Ceiling,
		Active:    a.Active,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}
