package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	bidding "bitnow-bidding/internal/biddingService"
	model "bitnow-bidding/internal/models"
	repository "bitnow-bidding/internal/repository"

	"github.com/shopspring/decimal"
)

func benchAuction(id string, startingBid int64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:   id,
		Status:      model.AuctionActive,
		StartTime:   now,
		EndTime:     now.Add(24 * time.Hour),
		StartingBid: decimal.NewFromInt(startingBid),
	}
}

func newBenchService(auctions int, opts ...bidding.Option) (*repository.MemoryLedger, *bidding.BiddingService) {
	ledger := repository.NewMemoryLedger()
	for i := 0; i < auctions; i++ {
		ledger.AddAuction(benchAuction(fmt.Sprintf("auction_%d", i), 50))
	}
	return ledger, bidding.NewBiddingService(ledger, repository.NewMemoryAgentStore(), opts...)
}

// Benchmark 1: PlaceBid - Isolated Auctions (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	ctx := context.Background()
	_, svc := newBenchService(b.N)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		userID := fmt.Sprintf("user_%d", i)
		auctionID := fmt.Sprintf("auction_%d", i)
		amount := decimal.NewFromInt(int64(50 + rand.Intn(100)))
		if _, err := svc.PlaceBid(ctx, auctionID, userID, amount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Auction (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	ctx := context.Background()
	_, svc := newBenchService(1)

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := fmt.Sprintf("user_parallel_%d", rnd.Int())

			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			_, _ = svc.PlaceBid(ctx, "auction_0", userID, decimal.NewFromInt(nextBid))
		}
	})
}

// Benchmark 3: Cascade - two agents fight up to their ceilings after one human bid
func Benchmark_AutoBidCascade(b *testing.B) {
	ctx := context.Background()
	_, svc := newBenchService(b.N)

	for i := 0; i < b.N; i++ {
		auctionID := fmt.Sprintf("auction_%d", i)
		if _, err := svc.CreateOrUpdateAutoBid(ctx, auctionID, "agent_a", decimal.NewFromInt(200_000)); err != nil {
			b.Fatalf("failed to create agent: %v", err)
		}
		if _, err := svc.CreateOrUpdateAutoBid(ctx, auctionID, "agent_b", decimal.NewFromInt(250_000)); err != nil {
			b.Fatalf("failed to create agent: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		auctionID := fmt.Sprintf("auction_%d", i)
		if _, err := svc.PlaceBid(ctx, auctionID, "human", decimal.NewFromInt(50)); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 4: GetHighestBid - Concurrent (High Contention)
func Benchmark_GetHighestBid_ConcurrentSharedAuction(b *testing.B) {
	ctx := context.Background()
	_, svc := newBenchService(1)

	for j := 0; j < 100; j++ {
		userID := fmt.Sprintf("user_%d", j)
		_, _ = svc.PlaceBid(ctx, "auction_0", userID, decimal.NewFromInt(int64(50+j)))
	}
	if err := svc.Flush(ctx); err != nil {
		b.Fatalf("failed to flush: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.GetHighestBid(ctx, "auction_0"); err != nil {
				b.Errorf("failed to get highest bid: %v", err)
				return
			}
		}
	})
}

// Benchmark 5: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedAuction(b *testing.B) {
	ctx := context.Background()
	_, svc := newBenchService(1)

	for j := 0; j < 50; j++ {
		userID := fmt.Sprintf("user_seed_%d", j)
		_, _ = svc.PlaceBid(ctx, "auction_0", userID, decimal.NewFromInt(int64(50+j*2)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 150

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			switch opType := rnd.Intn(10); {
			case opType < 3:
				userID := fmt.Sprintf("user_writer_%d", rnd.Int())
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
				_, _ = svc.PlaceBid(ctx, "auction_0", userID, decimal.NewFromInt(nextBid))
			case opType < 6:
				_, _ = svc.GetRecentBids(ctx, "auction_0", 20)
			default:
				_, _ = svc.GetHighestBid(ctx, "auction_0")
			}
		}
	})
}
