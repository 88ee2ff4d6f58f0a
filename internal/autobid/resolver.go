// Package autobid runs proxy bidding: standing agents that outbid competitors
// up to a ceiling without human intervention.
package autobid

import (
	"bitnow-bidding/internal/increment"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"bitnow-bidding/utils"
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStepsPerAgent bounds a cascade at this many automatic bids per active agent.
// Climbing from zero to the top increment band takes a few hundred steps.
const DefaultStepsPerAgent = 1000

// BidPlacer places an automatic bid through the full bid pipeline without
// triggering resolution itself.
type BidPlacer interface {
	PlaceAutoBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (model.BidResult, error)
}

// AuctionReader reads the authoritative auction state
type AuctionReader interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
}

// Summary describes what one drain of an auction's cascade queue did
type Summary struct {
	Steps       int
	Deactivated []string
	Capped      bool
}

type trigger struct {
	bidderID string
	price    decimal.Decimal
}

// Resolver reacts to committed bids by issuing automatic bids. Every accepted
// bid enqueues a trigger on its auction's queue; one caller at a time drains
// an auction's queue, evaluating agents sequentially.
type Resolver struct {
	agents        repository.AgentStore
	auctions      AuctionReader
	placer        BidPlacer
	stepsPerAgent int
	now           func() time.Time

	mu     sync.Mutex
	queues map[string][]trigger // present while a drainer is running
}

// NewResolver creates a resolver. stepsPerAgent <= 0 selects DefaultStepsPerAgent.
func NewResolver(agents repository.AgentStore, auctions AuctionReader, placer BidPlacer, stepsPerAgent int, now func() time.Time) *Resolver {
	if stepsPerAgent <= 0 {
		stepsPerAgent = DefaultStepsPerAgent
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		agents:        agents,
		auctions:      auctions,
		placer:        placer,
		stepsPerAgent: stepsPerAgent,
		now:           now,
		queues:        make(map[string][]trigger),
	}
}

// ResolveAfterBid is called once after every accepted bid. If another caller is
// already draining this auction's queue the trigger is handed to it and
// ResolveAfterBid returns immediately with an empty summary.
func (r *Resolver) ResolveAfterBid(ctx context.Context, auctionID, lastBidderID string, price decimal.Decimal) Summary {
	r.mu.Lock()
	queue, draining := r.queues[auctionID]
	r.queues[auctionID] = append(queue, trigger{bidderID: lastBidderID, price: price})
	r.mu.Unlock()

	if draining {
		return Summary{}
	}
	// the cascade outlives the request that happened to start it
	return r.drain(context.WithoutCancel(ctx), auctionID)
}

// next pops the oldest trigger, releasing the auction when the queue is empty
func (r *Resolver) next(auctionID string) (trigger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.queues[auctionID]
	if len(queue) == 0 {
		delete(r.queues, auctionID)
		return trigger{}, false
	}
	r.queues[auctionID] = queue[1:]
	return queue[0], true
}

func (r *Resolver) push(auctionID string, t trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[auctionID] = append(r.queues[auctionID], t)
}

func (r *Resolver) abandon(auctionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := len(r.queues[auctionID])
	delete(r.queues, auctionID)
	return dropped
}

func (r *Resolver) drain(ctx context.Context, auctionID string) Summary {
	var (
		sum   Summary
		limit = -1
	)

	for {
		t, ok := r.next(auctionID)
		if !ok {
			return sum
		}

		agents, err := r.agents.ListActive(ctx, auctionID)
		if err != nil {
			utils.Warn("autobid: failed to load agents", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
			continue
		}
		if limit < 0 {
			limit = r.stepsPerAgent * max(1, len(agents))
		}

		if r.pass(ctx, auctionID, t, agents, limit, &sum) {
			dropped := r.abandon(auctionID)
			utils.Warn("autobid: cascade step cap reached", map[string]any{
				"auction_id":       auctionID,
				"steps":            sum.Steps,
				"limit":            limit,
				"dropped_triggers": dropped,
			})
			sum.Capped = true
			return sum
		}
	}
}

// pass evaluates every agent once against trigger t. It reports whether the step cap was hit.
func (r *Resolver) pass(ctx context.Context, auctionID string, t trigger, agents []model.AutoBidAgent, limit int, sum *Summary) bool {
	utils.Debug("autobid: resolving", map[string]any{
		"auction_id":  auctionID,
		"last_bidder": t.bidderID,
		"price":       t.price.String(),
		"agents":      len(agents),
	})

	for _, agent := range agents {
		if agent.UserID == t.bidderID {
			continue
		}

		// re-read: an earlier agent in this pass may have moved the price
		auction, err := r.auctions.GetAuction(ctx, auctionID)
		if err != nil {
			utils.Warn("autobid: failed to read auction", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
			return false
		}
		if auction.Status != model.AuctionActive || !r.now().Before(auction.EndTime) {
			return false
		}
		if auction.LeadingBidderID == agent.UserID {
			continue
		}

		nextBid := increment.Next(auction.CurrentPrice())
		if nextBid.GreaterThan(agent.Ceiling) {
			r.deactivate(ctx, auctionID, agent, nextBid, sum)
			continue
		}

		if sum.Steps >= limit {
			return true
		}

		result, err := r.placer.PlaceAutoBid(ctx, auctionID, agent.UserID, nextBid)
		if err != nil {
			utils.Warn("autobid: automatic bid failed, skipping agent", map[string]any{
				"auction_id": auctionID,
				"user_id":    agent.UserID,
				"amount":     nextBid.String(),
				"error":      err.Error(),
			})
			continue
		}

		sum.Steps++
		r.push(auctionID, trigger{bidderID: agent.UserID, price: result.CurrentBid})
		utils.Debug("autobid: automatic bid placed", map[string]any{
			"auction_id": auctionID,
			"user_id":    agent.UserID,
			"amount":     result.CurrentBid.String(),
			"bid_count":  result.BidCount,
		})
	}
	return false
}

func (r *Resolver) deactivate(ctx context.Context, auctionID string, agent model.AutoBidAgent, nextBid decimal.Decimal, sum *Summary) {
	if _, err := r.agents.Deactivate(ctx, auctionID, agent.UserID); err != nil {
		utils.Warn("autobid: failed to deactivate agent", map[string]any{
			"auction_id": auctionID,
			"user_id":    agent.UserID,
			"error":      err.Error(),
		})
		return
	}
	sum.Deactivated = append(sum.Deactivated, agent.UserID)
	utils.Info("autobid: agent outbid past ceiling, deactivated", map[string]any{
		"auction_id": auctionID,
		"user_id":    agent.UserID,
		"ceiling":    agent.Ceiling.String(),
		"next_bid":   nextBid.String(),
	})
}
