package autobid

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Service manages auto-bid agents on behalf of their owners
type Service struct {
	agents   repository.AgentStore
	auctions AuctionReader
	now      func() time.Time
}

// NewService creates the agent management service
func NewService(agents repository.AgentStore, auctions AuctionReader, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{agents: agents, auctions: auctions, now: now}
}

// CreateOrUpdate sets the user's ceiling on an auction. The agent reacts from the next accepted bid on.
func (s *Service) CreateOrUpdate(ctx context.Context, auctionID, userID string, ceiling decimal.Decimal) (model.AutoBidAgent, error) {
	if auctionID == "" || userID == "" {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w - missing auctionID or userID", biddingerrors.ErrInvalidBid)
	}
	if !ceiling.IsPositive() {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w - non-positive ceiling", biddingerrors.ErrInvalidBid)
	}
	if !model.HasMoneyScale(ceiling) {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w - ceiling %s has more than %d decimal places", biddingerrors.ErrInvalidBid, ceiling.String(), model.MoneyScale)
	}

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w", err)
	}

	now := s.now().UTC()
	if auction.Status != model.AuctionActive {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w - status is %s", biddingerrors.ErrAuctionNotActive, auction.Status)
	}
	if !now.Before(auction.EndTime) {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w", biddingerrors.ErrAuctionEnded)
	}
	if price := auction.CurrentPrice(); ceiling.LessThanOrEqual(price) {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: %w - current price is %s", biddingerrors.ErrCeilingBelowCurrentPrice, price)
	}

	agent, err := s.agents.Upsert(ctx, model.AutoBidAgent{
		AuctionID: auctionID,
		UserID:    userID,
		Ceiling:   ceiling,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: failed to save agent for user %s on auction %s: %w", userID, auctionID, err)
	}
	return agent, nil
}

// Deactivate cancels the user's agent. It returns false if no agent existed.
func (s *Service) Deactivate(ctx context.Context, auctionID, userID string) (bool, error) {
	ok, err := s.agents.Deactivate(ctx, auctionID, userID)
	if err != nil {
		return false, fmt.Errorf("autobid: failed to deactivate agent for user %s on auction %s: %w", userID, auctionID, err)
	}
	return ok, nil
}

// Get returns the user's active agent, or ErrAutoBidNotFound when none is active
func (s *Service) Get(ctx context.Context, auctionID, userID string) (model.AutoBidAgent, error) {
	agent, err := s.agents.Get(ctx, auctionID, userID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrAutoBidNotFound) {
			return model.AutoBidAgent{}, fmt.Errorf("autobid: %w", err)
		}
		return model.AutoBidAgent{}, fmt.Errorf("autobid: failed to get agent for user %s on auction %s: %w", userID, auctionID, err)
	}
	if !agent.Active {
		return model.AutoBidAgent{}, fmt.Errorf("autobid: agent for user %s on auction %s is inactive: %w", userID, auctionID, biddingerrors.ErrAutoBidNotFound)
	}
	return agent, nil
}
