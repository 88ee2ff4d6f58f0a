package repository

import (
	"bitnow-bidding/internal/biddingerrors"
	model "bitnow-bidding/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AgentStore persists auto-bid agents, unique per (auction, user)
type AgentStore interface {
	// Upsert creates the agent or updates the existing one in place. Updating an
	// active agent keeps its CreatedAt; reactivating an inactive one takes the new CreatedAt.
	Upsert(ctx context.Context, agent model.AutoBidAgent) (model.AutoBidAgent, error)
	Get(ctx context.Context, auctionID, userID string) (model.AutoBidAgent, error)
	// ListActive returns active agents ordered by CreatedAt, then UserID.
	ListActive(ctx context.Context, auctionID string) ([]model.AutoBidAgent, error)
	// Deactivate reports whether an agent existed.
	Deactivate(ctx context.Context, auctionID, userID string) (bool, error)
}

type agentKey struct {
	auctionID string
	userID    string
}

// MemoryAgentStore is a concurrency-safe in-memory implementation of AgentStore
type MemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[agentKey]model.AutoBidAgent
	now    func() time.Time
}

// NewMemoryAgentStore creates a new in-memory agent store
func NewMemoryAgentStore() *MemoryAgentStore {
	return &MemoryAgentStore{
		agents: make(map[agentKey]model.AutoBidAgent),
		now:    time.Now,
	}
}

func (s *MemoryAgentStore) Upsert(_ context.Context, agent model.AutoBidAgent) (model.AutoBidAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey{agent.AuctionID, agent.UserID}
	if existing, ok := s.agents[key]; ok && existing.Active {
		agent.CreatedAt = existing.CreatedAt
	}
	agent.Active = true
	s.agents[key] = agent
	return agent, nil
}

func (s *MemoryAgentStore) Get(_ context.Context, auctionID, userID string) (model.AutoBidAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[agentKey{auctionID, userID}]
	if !ok {
		return model.AutoBidAgent{}, fmt.Errorf("auto-bid %s/%s: %w", auctionID, userID, biddingerrors.ErrAutoBidNotFound)
	}
	return agent, nil
}

func (s *MemoryAgentStore) ListActive(_ context.Context, auctionID string) ([]model.AutoBidAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.AutoBidAgent
	for key, agent := range s.agents {
		if key.auctionID == auctionID && agent.Active {
			out = append(out, agent)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *MemoryAgentStore) Deactivate(_ context.Context, auctionID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey{auctionID, userID}
	agent, ok := s.agents[key]
	if !ok {
		return false, nil
	}
	agent.Active = false
	agent.UpdatedAt = s.now().UTC()
	s.agents[key] = agent
	return true, nil
}
