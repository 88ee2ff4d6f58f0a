package main

import (
	"bitnow-bidding/internal/bidcache"
	bidding "bitnow-bidding/internal/biddingService"
	"bitnow-bidding/internal/broadcast"
	"bitnow-bidding/internal/config"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"bitnow-bidding/internal/server"
	"bitnow-bidding/internal/users"
	"bitnow-bidding/utils"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

type backends struct {
	ledger repository.Ledger
	agents repository.AgentStore
	seed   func(context.Context, model.Auction) error
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open ledger", map[string]any{"backend": cfg.LedgerBackend, "error": err.Error()})
	}
	defer store.close()

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open bid cache", map[string]any{"backend": cfg.CacheBackend, "error": err.Error()})
	}
	defer closeCache()

	hub := broadcast.NewHub(broadcast.DefaultBuffer)
	publishers := broadcast.Fanout{hub}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("bitnow-bidding"), nats.MaxReconnects(-1))
		if err != nil {
			utils.Fatal("failed to connect to NATS", map[string]any{"url": cfg.NATSURL, "error": err.Error()})
		}
		defer nc.Drain()
		publishers = append(publishers, broadcast.NewNATSPublisher(nc))
		utils.Info("publishing bid events to NATS", map[string]any{"url": cfg.NATSURL})
	}

	names := users.NewStaticDirectory(nil)
	if cfg.SeedDemo {
		if err := seedDemo(ctx, store.seed, names); err != nil {
			utils.Fatal("failed to seed demo auctions", map[string]any{"error": err.Error()})
		}
	}

	biddingSvc := bidding.NewBiddingService(store.ledger, store.agents,
		bidding.WithCache(cache),
		bidding.WithCacheWriteTimeout(cfg.CacheWriteTimeout()),
		bidding.WithPublisher(publishers),
		bidding.WithDirectory(names),
		bidding.WithCascadeStepsPerAgent(cfg.CascadeStepsPerAgent),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.SetupRouter(biddingSvc, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{
			"addr":   srv.Addr,
			"ledger": cfg.LedgerBackend,
			"cache":  cfg.CacheBackend,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("server forced to shut down", map[string]any{"error": err.Error()})
	}
	if err := biddingSvc.Flush(shutdownCtx); err != nil {
		utils.Error("pending bid events were dropped", map[string]any{"error": err.Error()})
	}
	utils.Info("server stopped", nil)
}

func openStore(ctx context.Context, cfg config.Config) (backends, error) {
	if cfg.LedgerBackend != config.BackendPostgres {
		ledger := repository.NewMemoryLedger()
		return backends{
			ledger: ledger,
			agents: repository.NewMemoryAgentStore(),
			seed: func(_ context.Context, a model.Auction) error {
				ledger.AddAuction(a)
				return nil
			},
			close: func() {},
		}, nil
	}

	pg, err := repository.OpenPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return backends{}, err
	}
	if err := pg.Migrate(); err != nil {
		pg.Close()
		return backends{}, err
	}
	ledger := repository.NewPostgresLedger(pg)
	return backends{
		ledger: ledger,
		agents: repository.NewPostgresAgentStore(pg),
		seed:   ledger.AddAuction,
		close:  func() { pg.Close() },
	}, nil
}

func openCache(ctx context.Context, cfg config.Config) (bidcache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		rc, err := bidcache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	case config.BackendDisabled:
		return bidcache.Disabled{}, func() {}, nil
	default:
		return bidcache.NewMemoryCache(), func() {}, nil
	}
}

// seedDemo adds sample auctions and bidder names
func seedDemo(ctx context.Context, seed func(context.Context, model.Auction) error, names *users.StaticDirectory) error {
	now := time.Now().UTC()
	auctions := []model.Auction{
		{AuctionID: "auction1", Status: model.AuctionActive, StartTime: now, EndTime: now.Add(24 * time.Hour), StartingBid: decimal.NewFromInt(100_000)},
		{AuctionID: "auction2", Status: model.AuctionActive, StartTime: now, EndTime: now.Add(2 * time.Hour), StartingBid: decimal.NewFromInt(5_000)},
		{AuctionID: "auction3", Status: model.AuctionDraft, StartTime: now.Add(time.Hour), EndTime: now.Add(48 * time.Hour), StartingBid: decimal.NewFromInt(1_000_000)},
	}
	for _, a := range auctions {
		if err := seed(ctx, a); err != nil {
			return err
		}
	}

	names.Set("user1", "Alice")
	names.Set("user2", "Bob")
	names.Set("user3", "Carol")
	utils.Info("seeded demo auctions", map[string]any{"count": len(auctions)})
	return nil
}
