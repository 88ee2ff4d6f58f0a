package repository

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func auctionRows(now time.Time, current any, count int, leader any) *sqlmock.Rows {
	return sqlmock.NewRows(auctionColumns).
		AddRow("a1", "active", now.Add(-time.Hour), now.Add(time.Hour), "100000", current, nil, count, leader, nil)
}

func TestPostgresLedger_GetAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = $1")).
			WithArgs("a1").
			WillReturnRows(auctionRows(now, "150000", 1, "u1"))

		auction, err := ledger.GetAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, model.AuctionActive, auction.Status)
		require.True(t, auction.StartingBid.Equal(decimal.NewFromInt(100_000)))
		require.NotNil(t, auction.CurrentBid)
		require.True(t, auction.CurrentBid.Equal(decimal.NewFromInt(150_000)))
		require.Nil(t, auction.BuyNowPrice)
		require.Equal(t, 1, auction.BidCount)
		require.Equal(t, "u1", auction.LeadingBidderID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = $1")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := ledger.GetAuction(ctx, "missing")
		require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
	})
}

func TestPostgresLedger_Apply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	bid := newBid("b2", "a1", "u2", 172_500, now)

	t.Run("commits_in_one_transaction", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = $1 FOR UPDATE")).
			WithArgs("a1").
			WillReturnRows(auctionRows(now, "160000", 2, "u3"))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bids")).
			WithArgs("b2", "a1", "u2", sqlmock.AnyArg(), sqlmock.AnyArg(), false).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions SET current_bid = $1, bid_count = bid_count + 1, leading_bidder_id = $2 WHERE id = $3")).
			WithArgs(sqlmock.AnyArg(), "u2", "a1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var seen model.Auction
		auction, placed, err := ledger.Apply(ctx, "a1", func(a model.Auction) (model.Bid, error) {
			seen = a
			return bid, nil
		})
		require.NoError(t, err)
		require.True(t, seen.CurrentBid.Equal(decimal.NewFromInt(160_000)))
		require.Equal(t, bid, placed)
		require.Equal(t, 3, auction.BidCount)
		require.True(t, auction.CurrentBid.Equal(decimal.NewFromInt(172_500)))
		require.Equal(t, "u2", auction.LeadingBidderID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejection_rolls_back", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs("a1").
			WillReturnRows(auctionRows(now, "160000", 2, "u3"))
		mock.ExpectRollback()

		_, _, err := ledger.Apply(ctx, "a1", func(model.Auction) (model.Bid, error) {
			return model.Bid{}, biddingerrors.ErrBidTooLow
		})
		require.ErrorIs(t, err, biddingerrors.ErrBidTooLow)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert_failure_is_hard_error", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs("a1").
			WillReturnRows(auctionRows(now, nil, 0, nil))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bids")).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, _, err := ledger.Apply(ctx, "a1", accept(bid))
		require.Error(t, err)
		require.False(t, biddingerrors.IsValidation(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_auction", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		ledger := NewPostgresLedger(pg)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs("a1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := ledger.Apply(ctx, "a1", accept(bid))
		require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLedger_RecentBids(t *testing.T) {
	t.Parallel()

	pg, mock := newMockPostgres(t)
	ledger := NewPostgresLedger(pg)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bids WHERE auction_id = $1 ORDER BY seq DESC LIMIT 2")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(bidColumns).
			AddRow("b3", "a1", "u2", "172500", now, true).
			AddRow("b2", "a1", "u3", "160000", now.Add(-time.Second), false))

	bids, err := ledger.RecentBids(context.Background(), "a1", 2)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, "b3", bids[0].BidID)
	require.True(t, bids[0].IsAutoBid)
	require.True(t, bids[1].Amount.Equal(decimal.NewFromInt(160_000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		_, err := fs.Stat(migrationsFS, strings.TrimSuffix(up, ".up.sql")+".down.sql")
		require.NoError(t, err, "%s has no down migration", up)
	}

	// recent bids are ordered by the insert sequence
	seq, err := fs.ReadFile(migrationsFS, "migrations/000002_bid_sequence.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(seq), "ADD COLUMN IF NOT EXISTS seq")
}

func TestPostgresAgentStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("upsert", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		store := NewPostgresAgentStore(pg)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO autobids")).
			WithArgs("a1", "u2", sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(agentColumns).AddRow("a1", "u2", "400000", true, now, now))

		agent, err := store.Upsert(ctx, model.AutoBidAgent{
			AuctionID: "a1", UserID: "u2", Ceiling: decimal.NewFromInt(400_000), CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		require.True(t, agent.Active)
		require.True(t, agent.Ceiling.Equal(decimal.NewFromInt(400_000)))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list_active", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		store := NewPostgresAgentStore(pg)

		mock.ExpectQuery(regexp.QuoteMeta("FROM autobids WHERE auction_id = $1 AND active ORDER BY created_at ASC, user_id ASC")).
			WithArgs("a1").
			WillReturnRows(sqlmock.NewRows(agentColumns).
				AddRow("a1", "u1", "172000", true, now, now).
				AddRow("a1", "u2", "1000000", true, now.Add(time.Second), now))

		agents, err := store.ListActive(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, agents, 2)
		require.Equal(t, "u1", agents[0].UserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get_missing", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		store := NewPostgresAgentStore(pg)

		mock.ExpectQuery(regexp.QuoteMeta("FROM autobids WHERE auction_id = $1 AND user_id = $2")).
			WithArgs("a1", "u9").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(ctx, "a1", "u9")
		require.ErrorIs(t, err, biddingerrors.ErrAutoBidNotFound)
	})

	t.Run("deactivate", func(t *testing.T) {
		t.Parallel()

		pg, mock := newMockPostgres(t)
		store := NewPostgresAgentStore(pg)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE autobids SET active = $1, updated_at = $2 WHERE auction_id = $3 AND user_id = $4")).
			WithArgs(false, sqlmock.AnyArg(), "a1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE autobids")).
			WithArgs(false, sqlmock.AnyArg(), "a1", "nobody").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := store.Deactivate(ctx, "a1", "u1")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = store.Deactivate(ctx, "a1", "nobody")
		require.NoError(t, err)
		require.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
