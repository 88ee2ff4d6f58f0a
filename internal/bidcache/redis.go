package bidcache

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisCache stores recent bids as a capped Redis list (newest at the head)
// next to a plain string key holding the highest price.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and checks the connection
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: rdb}, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func recentKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:recent_bids", auctionID)
}

func highestKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:highest_bid", auctionID)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", biddingerrors.ErrCacheUnavailable, err)
}

func (c *RedisCache) RecordBid(ctx context.Context, auctionID string, bid model.CachedBid) error {
	payload, err := json.Marshal(bid)
	if err != nil {
		return fmt.Errorf("marshal cached bid: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, recentKey(auctionID), payload)
		pipe.LTrim(ctx, recentKey(auctionID), 0, MaxRecent-1)
		pipe.Set(ctx, highestKey(auctionID), bid.Amount.String(), 0)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *RedisCache) RecentBids(ctx context.Context, auctionID string, limit int) ([]model.CachedBid, error) {
	if limit < 1 {
		return nil, nil
	}
	raw, err := c.client.LRange(ctx, recentKey(auctionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	bids := make([]model.CachedBid, 0, len(raw))
	for _, item := range raw {
		var bid model.CachedBid
		if err := json.Unmarshal([]byte(item), &bid); err != nil {
			return nil, unavailable(fmt.Errorf("decode cached bid: %w", err))
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

func (c *RedisCache) HighestBid(ctx context.Context, auctionID string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, highestKey(auctionID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, unavailable(err)
	}

	amount, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false, unavailable(fmt.Errorf("decode highest bid %q: %w", val, err))
	}
	return amount, true, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, auctionID string) error {
	if err := c.client.Del(ctx, recentKey(auctionID), highestKey(auctionID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
