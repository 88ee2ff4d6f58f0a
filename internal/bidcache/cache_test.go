package bidcache

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"bitnow-bidding/internal/users"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func cachedBid(i int) model.CachedBid {
	return model.CachedBid{
		BidID:     fmt.Sprintf("b%d", i),
		BidderID:  fmt.Sprintf("user-%d", i),
		Amount:    decimal.NewFromInt(int64(1000 + i)),
		CreatedAt: time.Unix(int64(i), 0).UTC(),
	}
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheFromClient(client), srv
}

// Both cache backends share the same contract
func TestCacheBackends(t *testing.T) {
	t.Parallel()

	backends := map[string]func(t *testing.T) Cache{
		"memory": func(t *testing.T) Cache { return NewMemoryCache() },
		"redis": func(t *testing.T) Cache {
			c, _ := newRedisCache(t)
			return c
		},
	}

	for name, build := range backends {
		build := build
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			cache := build(t)

			bids, err := cache.RecentBids(ctx, "a1", 10)
			require.NoError(t, err)
			require.Empty(t, bids)

			_, ok, err := cache.HighestBid(ctx, "a1")
			require.NoError(t, err)
			require.False(t, ok)

			for i := 1; i <= MaxRecent+20; i++ {
				require.NoError(t, cache.RecordBid(ctx, "a1", cachedBid(i)))
			}

			all, err := cache.RecentBids(ctx, "a1", MaxRecent+50)
			require.NoError(t, err)
			require.Len(t, all, MaxRecent)
			require.Equal(t, "b120", all[0].BidID)
			require.Equal(t, "b21", all[MaxRecent-1].BidID)

			top, err := cache.RecentBids(ctx, "a1", 3)
			require.NoError(t, err)
			require.Equal(t, []string{"b120", "b119", "b118"}, []string{top[0].BidID, top[1].BidID, top[2].BidID})
			require.True(t, top[0].Amount.Equal(decimal.NewFromInt(1120)))

			for _, limit := range []int{0, -1} {
				none, err := cache.RecentBids(ctx, "a1", limit)
				require.NoError(t, err)
				require.Empty(t, none)
			}

			highest, ok, err := cache.HighestBid(ctx, "a1")
			require.NoError(t, err)
			require.True(t, ok)
			require.True(t, highest.Equal(decimal.NewFromInt(1120)))

			require.NoError(t, cache.RecordBid(ctx, "a2", cachedBid(7)))
			require.NoError(t, cache.Invalidate(ctx, "a1"))

			bids, err = cache.RecentBids(ctx, "a1", 10)
			require.NoError(t, err)
			require.Empty(t, bids)
			_, ok, err = cache.HighestBid(ctx, "a1")
			require.NoError(t, err)
			require.False(t, ok)

			// other auctions are untouched
			other, err := cache.RecentBids(ctx, "a2", 10)
			require.NoError(t, err)
			require.Len(t, other, 1)

			// invalidating an absent entry is not an error
			require.NoError(t, cache.Invalidate(ctx, "a3"))
		})
	}
}

func TestRedisCache_Unavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, srv := newRedisCache(t)
	srv.Close()

	err := cache.RecordBid(ctx, "a1", cachedBid(1))
	require.ErrorIs(t, err, biddingerrors.ErrCacheUnavailable)

	_, err = cache.RecentBids(ctx, "a1", 10)
	require.ErrorIs(t, err, biddingerrors.ErrCacheUnavailable)

	_, _, err = cache.HighestBid(ctx, "a1")
	require.ErrorIs(t, err, biddingerrors.ErrCacheUnavailable)

	err = cache.Invalidate(ctx, "a1")
	require.ErrorIs(t, err, biddingerrors.ErrCacheUnavailable)
}

func TestRedisCache_InvalidateDeletesBothKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, srv := newRedisCache(t)
	require.NoError(t, cache.RecordBid(ctx, "a1", cachedBid(1)))
	require.True(t, srv.Exists(recentKey("a1")))
	require.True(t, srv.Exists(highestKey("a1")))

	require.NoError(t, cache.Invalidate(ctx, "a1"))
	require.False(t, srv.Exists(recentKey("a1")))
	require.False(t, srv.Exists(highestKey("a1")))
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, ClampLimit(-5))
	require.Equal(t, 1, ClampLimit(0))
	require.Equal(t, 42, ClampLimit(42))
	require.Equal(t, MaxRecent, ClampLimit(MaxRecent))
	require.Equal(t, MaxRecent, ClampLimit(MaxRecent+1))
}

func seededLedger(t *testing.T) *repository.MemoryLedger {
	t.Helper()

	ctx := context.Background()
	ledger := repository.NewMemoryLedger()
	now := time.Now().UTC()
	ledger.AddAuction(model.Auction{
		AuctionID:   "a1",
		Status:      model.AuctionActive,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(time.Hour),
		StartingBid: decimal.NewFromInt(100),
	})
	for i := 1; i <= 5; i++ {
		bid := model.Bid{
			BidID:     fmt.Sprintf("b%d", i),
			AuctionID: "a1",
			BidderID:  fmt.Sprintf("bidder-%d-long-id", i),
			Amount:    decimal.NewFromInt(int64(100 + i)),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		_, _, err := ledger.Apply(ctx, "a1", func(model.Auction) (model.Bid, error) { return bid, nil })
		require.NoError(t, err)
	}
	return ledger
}

// With the cache disabled, reads match the ledger exactly
func TestReader_DisabledCacheMatchesLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := seededLedger(t)
	reader := NewReader(Disabled{}, ledger, nil)

	got, err := reader.RecentBids(ctx, "a1", 3)
	require.NoError(t, err)

	want, err := ledger.RecentBids(ctx, "a1", 3)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].BidID, got[i].BidID)
		require.Equal(t, want[i].BidderID, got[i].BidderID)
		require.True(t, want[i].Amount.Equal(got[i].Amount))
		require.Equal(t, want[i].CreatedAt, got[i].CreatedAt)
	}

	highest, ok, err := reader.HighestBid(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok)
	auction, err := ledger.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, auction.CurrentBid.Equal(highest))
}

func TestReader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("cache_hit_fills_missing_names", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryCache()
		named := cachedBid(1)
		named.BidderName = "Alice"
		require.NoError(t, cache.RecordBid(ctx, "a1", named))
		require.NoError(t, cache.RecordBid(ctx, "a1", cachedBid(2)))

		reader := NewReader(cache, repository.NewMemoryLedger(), nil)
		bids, err := reader.RecentBids(ctx, "a1", 10)
		require.NoError(t, err)
		require.Len(t, bids, 2)
		require.Equal(t, PlaceholderName("user-2"), bids[0].BidderName)
		require.Equal(t, "Alice", bids[1].BidderName)
	})

	t.Run("empty_cache_falls_back_with_directory_names", func(t *testing.T) {
		t.Parallel()

		names := users.NewStaticDirectory(map[string]string{"bidder-5-long-id": "Eve"})
		reader := NewReader(NewMemoryCache(), seededLedger(t), names)

		bids, err := reader.RecentBids(ctx, "a1", 2)
		require.NoError(t, err)
		require.Len(t, bids, 2)
		require.Equal(t, "Eve", bids[0].BidderName)
		require.Equal(t, "Bidder bidder-4", bids[1].BidderName)
	})

	t.Run("limit_is_clamped", func(t *testing.T) {
		t.Parallel()

		reader := NewReader(Disabled{}, seededLedger(t), nil)
		bids, err := reader.RecentBids(ctx, "a1", 0)
		require.NoError(t, err)
		require.Len(t, bids, 1)
		require.Equal(t, "b5", bids[0].BidID)
	})

	t.Run("highest_absent_without_bids", func(t *testing.T) {
		t.Parallel()

		ledger := repository.NewMemoryLedger()
		ledger.AddAuction(model.Auction{AuctionID: "a2", Status: model.AuctionActive, StartingBid: decimal.NewFromInt(10)})
		reader := NewReader(NewMemoryCache(), ledger, nil)

		_, ok, err := reader.HighestBid(ctx, "a2")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown_auction", func(t *testing.T) {
		t.Parallel()

		reader := NewReader(Disabled{}, repository.NewMemoryLedger(), nil)
		_, _, err := reader.HighestBid(ctx, "missing")
		require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)

		_, err = reader.RecentBids(ctx, "missing", 5)
		require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
	})
}
