package handler

import (
	"context"
	"net/http"
	"strconv"

	"bitnow-bidding/internal/bidcache"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/services/bidding/helpers"
	"bitnow-bidding/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

type BiddingServiceInterface interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.BidResult, error)
	GetRecentBids(ctx context.Context, auctionID string, limit int) ([]model.CachedBid, error)
	GetHighestBid(ctx context.Context, auctionID string) (decimal.Decimal, error)
	CreateOrUpdateAutoBid(ctx context.Context, auctionID, userID string, ceiling decimal.Decimal) (model.AutoBidAgent, error)
	GetAutoBid(ctx context.Context, auctionID, userID string) (model.AutoBidAgent, error)
	DeactivateAutoBid(ctx context.Context, auctionID, userID string) (bool, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	result, err := h.service.PlaceBid(c.Request.Context(), auctionID, req.BidderID, *req.Amount)
	if err != nil {
		status := helpers.RespondError(c, err)
		fields := map[string]any{
			"handler":    "PlaceBidHandler",
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount.String(),
			"error":      err.Error(),
		}
		if status >= http.StatusInternalServerError {
			utils.Error("PlaceBidHandler: failed to place bid", fields)
		} else {
			utils.Info("PlaceBidHandler: bid rejected", fields)
		}
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResultResponse(result), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     result.PlacedBid.BidID,
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"amount":     result.PlacedBid.Amount.String(),
		"bid_count":  result.BidCount,
	})
}

// GetRecentBidsHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetRecentBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	limit := bidcache.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			helpers.HandleBindError(c, "GetRecentBidsHandler", err)
			return
		}
		limit = n
	}

	bids, err := h.service.GetRecentBids(c.Request.Context(), auctionID, limit)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetRecentBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.CachedBid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetRecentBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetHighestBidHandler handles GET /auctions/:auction_id/highest
func (h *BiddingHandler) GetHighestBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	amount, err := h.service.GetHighestBid(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Info("GetHighestBidHandler: no highest bid", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.HighestBidResponse{Amount: amount}, "highest bid retrieved successfully")
}

// PutAutoBidHandler handles PUT /auctions/:auction_id/autobids/:user_id
func (h *BiddingHandler) PutAutoBidHandler(c *gin.Context) {
	auctionID, userID := c.Param("auction_id"), c.Param("user_id")

	var req helpers.AutoBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PutAutoBidHandler", err)
		return
	}

	agent, err := h.service.CreateOrUpdateAutoBid(c.Request.Context(), auctionID, userID, *req.Ceiling)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("PutAutoBidHandler: failed to save auto-bid", map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
			"ceiling":    req.Ceiling.String(),
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAutoBidResponse(agent), "auto-bid saved successfully")
	helpers.LogSuccess("PutAutoBidHandler", "auto-bid saved successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
		"ceiling":    agent.Ceiling.String(),
	})
}

// GetAutoBidHandler handles GET /auctions/:auction_id/autobids/:user_id
func (h *BiddingHandler) GetAutoBidHandler(c *gin.Context) {
	auctionID, userID := c.Param("auction_id"), c.Param("user_id")
	agent, err := h.service.GetAutoBid(c.Request.Context(), auctionID, userID)
	if err != nil {
		helpers.RespondError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAutoBidResponse(agent), "auto-bid retrieved successfully")
}

// DeleteAutoBidHandler handles DELETE /auctions/:auction_id/autobids/:user_id
func (h *BiddingHandler) DeleteAutoBidHandler(c *gin.Context) {
	auctionID, userID := c.Param("auction_id"), c.Param("user_id")
	ok, err := h.service.DeactivateAutoBid(c.Request.Context(), auctionID, userID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Error("DeleteAutoBidHandler: failed to deactivate auto-bid", map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.DeactivateResponse{Deactivated: ok}, "auto-bid deactivated")
	helpers.LogSuccess("DeleteAutoBidHandler", "auto-bid deactivated", map[string]any{
		"auction_id":  auctionID,
		"user_id":     userID,
		"deactivated": ok,
	})
}
