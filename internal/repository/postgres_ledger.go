package repository

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

var auctionColumns = []string{
	"id", "status", "start_time", "end_time", "starting_bid", "current_bid",
	"buy_now_price", "bid_count", "leading_bidder_id", "winner_id",
}

var bidColumns = []string{"id", "auction_id", "bidder_id", "amount", "created_at", "is_auto_bid"}

// PostgresLedger is the durable Ledger. Apply takes a row lock on the auction
// for the duration of its transaction.
type PostgresLedger struct {
	*Postgres
}

// NewPostgresLedger creates a ledger on top of pg
func NewPostgresLedger(pg *Postgres) *PostgresLedger {
	return &PostgresLedger{pg}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (model.Auction, error) {
	var (
		a               model.Auction
		status          string
		current         decimal.NullDecimal
		buyNow          decimal.NullDecimal
		leading, winner sql.NullString
	)
	err := row.Scan(&a.AuctionID, &status, &a.StartTime, &a.EndTime, &a.StartingBid, &current,
		&buyNow, &a.BidCount, &leading, &winner)
	if err != nil {
		return model.Auction{}, err
	}

	a.Status = model.AuctionStatus(status)
	if current.Valid {
		a.CurrentBid = &current.Decimal
	}
	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}
	a.LeadingBidderID = leading.String
	a.WinnerID = winner.String
	return a, nil
}

func (r *PostgresLedger) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	query, args, err := r.SqlBuilder.
		Select(auctionColumns...).
		From("auctions").
		Where(squirrel.Eq{"id": auctionID}).
		ToSql()
	if err != nil {
		return model.Auction{}, fmt.Errorf("build auction query: %w", err)
	}

	auction, err := scanAuction(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

func (r *PostgresLedger) Apply(ctx context.Context, auctionID string, decide DecideFunc) (auction model.Auction, bid model.Bid, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("begin bid transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery, args, err := r.SqlBuilder.
		Select(auctionColumns...).
		From("auctions").
		Where(squirrel.Eq{"id": auctionID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("build lock query: %w", err)
	}

	auction, err = scanAuction(tx.QueryRowContext(ctx, lockQuery, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, model.Bid{}, fmt.Errorf("auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("lock auction %s: %w", auctionID, err)
	}

	bid, err = decide(auction)
	if err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	insertQuery, args, err := r.SqlBuilder.
		Insert("bids").
		Columns(bidColumns...).
		Values(bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt, bid.IsAutoBid).
		ToSql()
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("build bid insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, insertQuery, args...); err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("insert bid: %w", err)
	}

	updateQuery, args, err := r.SqlBuilder.
		Update("auctions").
		Set("current_bid", bid.Amount).
		Set("bid_count", squirrel.Expr("bid_count + 1")).
		Set("leading_bidder_id", bid.BidderID).
		Where(squirrel.Eq{"id": auctionID}).
		ToSql()
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("build auction update: %w", err)
	}
	if _, err = tx.ExecContext(ctx, updateQuery, args...); err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("update auction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("commit bid: %w", err)
	}

	amount := bid.Amount
	auction.CurrentBid = &amount
	auction.BidCount++
	auction.LeadingBidderID = bid.BidderID
	return auction, bid, nil
}

// RecentBids orders by seq, the insert sequence. Inserts for one auction are
// serialized by the row lock, so seq is commit order.
func (r *PostgresLedger) RecentBids(ctx context.Context, auctionID string, limit int) ([]model.Bid, error) {
	query, args, err := r.SqlBuilder.
		Select(bidColumns...).
		From("bids").
		Where(squirrel.Eq{"auction_id": auctionID}).
		OrderBy("seq DESC").
		Limit(uint64(max(limit, 0))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent bids query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent bids: %w", err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt, &b.IsAutoBid); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}

// AddAuction inserts an auction row. Used for seeding.
func (r *PostgresLedger) AddAuction(ctx context.Context, a model.Auction) error {
	var buyNow decimal.NullDecimal
	if a.BuyNowPrice != nil {
		buyNow = decimal.NewNullDecimal(*a.BuyNowPrice)
	}

	query, args, err := r.SqlBuilder.
		Insert("auctions").
		Columns("id", "status", "start_time", "end_time", "starting_bid", "buy_now_price").
		Values(a.AuctionID, string(a.Status), a.StartTime, a.EndTime, a.StartingBid, buyNow).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build auction insert: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert auction %s: %w", a.AuctionID, err)
	}
	return nil
}
