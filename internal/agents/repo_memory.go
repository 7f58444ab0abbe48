package agents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu     sync.Mutex
	agents map[string]Agent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{agents: map[string]Agent{}}
}

func (r *MemoryRepository) Create(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok || a.UserID != userID {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) GetAny(ctx context.Context, agentID string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Agent
	for _, a := range r.agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CountByType(ctx context.Context, userID string, t AgentType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.agents {
		if a.UserID == userID && a.Type == t {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Update(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.agents[a.ID]
	if !ok || cur.UserID != a.UserID {
		return ErrNotFound
	}
	cur.Name = a.Name
	cur.Activated = a.Activated
	cur.UpdatedAt = time.Now().UTC()
	r.agents[a.ID] = cur
	return nil
}

func (r *MemoryRepository) UpdateSettings(ctx context.Context, userID, agentID string, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.agents[agentID]
	if !ok || cur.UserID != userID {
		return ErrNotFound
	}
	if s.Name != "" {
		cur.Name = s.Name
	}
	cur.WelcomeMessage = s.WelcomeMessage
	cur.EscalationNumber = s.EscalationNumber
	cur.UpdatedAt = time.Now().UTC()
	r.agents[agentID] = cur
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.agents[agentID]
	if !ok || cur.UserID != userID {
		return ErrNotFound
	}
	delete(r.agents, agentID)
	return nil
}
