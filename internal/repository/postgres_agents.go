package repository

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
)

var agentColumns = []string{"auction_id", "user_id", "ceiling", "active", "created_at", "updated_at"}

// PostgresAgentStore is the durable AgentStore
type PostgresAgentStore struct {
	*Postgres
	now func() time.Time
}

// NewPostgresAgentStore creates an agent store on top of pg
func NewPostgresAgentStore(pg *Postgres) *PostgresAgentStore {
	return &PostgresAgentStore{Postgres: pg, now: time.Now}
}

func scanAgent(row rowScanner) (model.AutoBidAgent, error) {
	var a model.AutoBidAgent
	err := row.Scan(&a.AuctionID, &a.UserID, &a.Ceiling, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *PostgresAgentStore) Upsert(ctx context.Context, agent model.AutoBidAgent) (model.AutoBidAgent, error) {
	query, args, err := s.SqlBuilder.
		Insert("autobids").
		Columns(agentColumns...).
		Values(agent.AuctionID, agent.UserID, agent.Ceiling, true, agent.CreatedAt, agent.UpdatedAt).
		Suffix(`ON CONFLICT (auction_id, user_id) DO UPDATE SET
			ceiling = EXCLUDED.ceiling,
			updated_at = EXCLUDED.updated_at,
			created_at = CASE WHEN autobids.active THEN autobids.created_at ELSE EXCLUDED.created_at END,
			active = TRUE
			RETURNING auction_id, user_id, ceiling, active, created_at, updated_at`).
		ToSql()
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("build auto-bid upsert: %w", err)
	}

	saved, err := scanAgent(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("upsert auto-bid %s/%s: %w", agent.AuctionID, agent.UserID, err)
	}
	return saved, nil
}

func (s *PostgresAgentStore) Get(ctx context.Context, auctionID, userID string) (model.AutoBidAgent, error) {
	query, args, err := s.SqlBuilder.
		Select(agentColumns...).
		From("autobids").
		Where(squirrel.Eq{"auction_id": auctionID}).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("build auto-bid query: %w", err)
	}

	agent, err := scanAgent(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AutoBidAgent{}, fmt.Errorf("auto-bid %s/%s: %w", auctionID, userID, biddingerrors.ErrAutoBidNotFound)
	}
	if err != nil {
		return model.AutoBidAgent{}, fmt.Errorf("get auto-bid %s/%s: %w", auctionID, userID, err)
	}
	return agent, nil
}

func (s *PostgresAgentStore) ListActive(ctx context.Context, auctionID string) ([]model.AutoBidAgent, error) {
	query, args, err := s.SqlBuilder.
		Select(agentColumns...).
		From("autobids").
		Where(squirrel.Eq{"auction_id": auctionID}).
		Where("active").
		OrderBy("created_at ASC", "user_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active auto-bids query: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active auto-bids: %w", err)
	}
	defer rows.Close()

	var agents []model.AutoBidAgent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auto-bid: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auto-bids: %w", err)
	}
	return agents, nil
}

func (s *PostgresAgentStore) Deactivate(ctx context.Context, auctionID, userID string) (bool, error) {
	query, args, err := s.SqlBuilder.
		Update("autobids").
		Set("active", false).
		Set("updated_at", s.now().UTC()).
		Where(squirrel.Eq{"auction_id": auctionID}).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build auto-bid deactivate: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("deactivate auto-bid %s/%s: %w", auctionID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
