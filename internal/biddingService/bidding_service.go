package bidding

import (
	"bitnow-bidding/internal/autobid"
	"bitnow-bidding/internal/bidcache"
	"bitnow-bidding/internal/biddingerrors"
	"bitnow-bidding/internal/broadcast"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"bitnow-bidding/internal/users"
	"bitnow-bidding/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCacheWriteTimeout bounds each post-commit cache write
const DefaultCacheWriteTimeout = 250 * time.Millisecond

// BiddingService is the bidding engine: validate, commit to the ledger, update
// the cache, broadcast, then let auto-bid agents react.
type BiddingService struct {
	ledger       repository.Ledger
	cache        bidcache.Cache
	cacheTimeout time.Duration
	reader       *bidcache.Reader
	gateway      *broadcast.Gateway
	names        users.Directory
	agents       *autobid.Service
	resolver     *autobid.Resolver
	locks        *auctionLocks
	dispatch     *dispatcher
	now          func() time.Time
}

// Option configures a BiddingService
type Option func(*options)

type options struct {
	cache         bidcache.Cache
	cacheTimeout  time.Duration
	publisher     broadcast.Publisher
	names         users.Directory
	now           func() time.Time
	stepsPerAgent int
}

// WithCache sets the advisory bid cache. The default is an in-process cache.
func WithCache(c bidcache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithCacheWriteTimeout bounds each cache write made after a commit.
// Non-positive values select DefaultCacheWriteTimeout.
func WithCacheWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.cacheTimeout = d }
}

// WithPublisher sets where BidPlaced events go
func WithPublisher(p broadcast.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithDirectory sets the display-name lookup used when caching bids
func WithDirectory(d users.Directory) Option {
	return func(o *options) { o.names = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCascadeStepsPerAgent bounds each auto-bid cascade
func WithCascadeStepsPerAgent(n int) Option {
	return func(o *options) { o.stepsPerAgent = n }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(ledger repository.Ledger, agents repository.AgentStore, opts ...Option) *BiddingService {
	o := options{
		cache: bidcache.NewMemoryCache(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheTimeout <= 0 {
		o.cacheTimeout = DefaultCacheWriteTimeout
	}

	s := &BiddingService{
		ledger:       ledger,
		cache:        o.cache,
		cacheTimeout: o.cacheTimeout,
		reader:       bidcache.NewReader(o.cache, ledger, o.names),
		gateway:      broadcast.NewGateway(o.publisher),
		names:        o.names,
		agents:       autobid.NewService(agents, ledger, o.now),
		locks:        newAuctionLocks(),
		now:          o.now,
	}
	s.dispatch = newDispatcher(s.deliver)
	s.resolver = autobid.NewResolver(agents, ledger, autoPlacer{s}, o.stepsPerAgent, o.now)
	return s
}

// autoPlacer gives the resolver the bid pipeline without the resolve step
type autoPlacer struct {
	s *BiddingService
}

func (p autoPlacer) PlaceAutoBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (model.BidResult, error) {
	return p.s.place(ctx, auctionID, userID, amount, true)
}

// PlaceBid validates and records a human bid, then resolves auto-bid agents
// before returning. The result describes the caller's own bid.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.BidResult, error) {
	result, err := s.place(ctx, auctionID, bidderID, amount, false)
	if err != nil {
		return model.BidResult{}, err
	}

	summary := s.resolver.ResolveAfterBid(ctx, auctionID, bidderID, result.CurrentBid)
	if summary.Steps > 0 || len(summary.Deactivated) > 0 {
		utils.Info("service: auto-bid cascade resolved", map[string]any{
			"auction_id":  auctionID,
			"auto_bids":   summary.Steps,
			"deactivated": summary.Deactivated,
			"capped":      summary.Capped,
		})
	}
	return result, nil
}

// place validates and commits under the auction's lock, then queues the cache
// update and the event. Queueing happens before unlock so both follow commit
// order; neither is awaited.
func (s *BiddingService) place(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal, isAutoBid bool) (model.BidResult, error) {
	if err := validateRequest(auctionID, bidderID, amount); err != nil {
		return model.BidResult{}, err
	}
	name := s.displayName(ctx, bidderID)

	unlock, err := s.locks.lock(ctx, auctionID)
	if err != nil {
		return model.BidResult{}, fmt.Errorf("service: waiting for auction %s: %w", auctionID, err)
	}
	defer unlock()

	auction, bid, err := s.ledger.Apply(ctx, auctionID, func(a model.Auction) (model.Bid, error) {
		now := s.now().UTC()
		if err := ValidateBid(a, amount, now); err != nil {
			return model.Bid{}, err
		}
		return model.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
			IsAutoBid: isAutoBid,
		}, nil
	})
	if err != nil {
		if biddingerrors.IsValidation(err) {
			return model.BidResult{}, err
		}
		return model.BidResult{}, fmt.Errorf("service: failed to record bid on auction %s by %s: %w", auctionID, bidderID, err)
	}

	result := model.BidResult{
		AuctionID:  auctionID,
		CurrentBid: *auction.CurrentBid,
		BidCount:   auction.BidCount,
		PlacedBid:  bid,
	}

	s.dispatch.enqueue(auctionID, dispatchJob{
		ctx:    context.WithoutCancel(ctx),
		cached: model.NewCachedBid(bid, name),
		result: result,
	})

	utils.Info("service: bid accepted", map[string]any{
		"auction_id":  auctionID,
		"bid_id":      bid.BidID,
		"bidder_id":   bidderID,
		"amount":      amount.String(),
		"bid_count":   result.BidCount,
		"is_auto_bid": isAutoBid,
	})
	return result, nil
}

// deliver writes one committed bid to the cache and publishes it. A failed
// write evicts the auction's entry so reads serve the ledger instead of a
// cache that is missing this bid.
func (s *BiddingService) deliver(job dispatchJob) {
	auctionID := job.result.AuctionID

	writeCtx, cancel := context.WithTimeout(job.ctx, s.cacheTimeout)
	err := s.cache.RecordBid(writeCtx, auctionID, job.cached)
	cancel()
	if err != nil {
		utils.Warn("service: bid cache update failed, evicting auction", map[string]any{
			"auction_id": auctionID,
			"bid_id":     job.cached.BidID,
			"error":      err.Error(),
		})
		evictCtx, cancel := context.WithTimeout(job.ctx, s.cacheTimeout)
		if err := s.cache.Invalidate(evictCtx, auctionID); err != nil {
			utils.Warn("service: bid cache eviction failed", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
		}
		cancel()
	}

	s.gateway.Publish(job.ctx, auctionID, job.result)
}

// Flush blocks until every accepted bid has been written to the cache and
// published, or ctx is done.
func (s *BiddingService) Flush(ctx context.Context) error {
	return s.dispatch.wait(ctx)
}

func (s *BiddingService) displayName(ctx context.Context, userID string) string {
	if s.names == nil {
		return ""
	}
	name, err := s.names.DisplayName(ctx, userID)
	if err != nil {
		utils.Warn("service: display name lookup failed", map[string]any{"user_id": userID, "error": err.Error()})
		return ""
	}
	return name
}

// GetAuction returns the authoritative auction state
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := s.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// GetRecentBids returns up to limit recent bids, newest first; limit is clamped to [1, 100]
func (s *BiddingService) GetRecentBids(ctx context.Context, auctionID string, limit int) ([]model.CachedBid, error) {
	bids, err := s.reader.RecentBids(ctx, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get recent bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetHighestBid returns the highest price, or ErrNoBids when nobody has bid
func (s *BiddingService) GetHighestBid(ctx context.Context, auctionID string) (decimal.Decimal, error) {
	amount, ok, err := s.reader.HighestBid(ctx, auctionID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return amount, nil
}

// CreateOrUpdateAutoBid sets the user's proxy-bid ceiling
func (s *BiddingService) CreateOrUpdateAutoBid(ctx context.Context, auctionID, userID string, ceiling decimal.Decimal) (model.AutoBidAgent, error) {
	return s.agents.CreateOrUpdate(ctx, auctionID, userID, ceiling)
}

// DeactivateAutoBid cancels the user's agent; false means none existed
func (s *BiddingService) DeactivateAutoBid(ctx context.Context, auctionID, userID string) (bool, error) {
	return s.agents.Deactivate(ctx, auctionID, userID)
}

// GetAutoBid returns the user's active agent
func (s *BiddingService) GetAutoBid(ctx context.Context, auctionID, userID string) (model.AutoBidAgent, error) {
	return s.agents.Get(ctx, auctionID, userID)
}
