package billing

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu   sync.Mutex
	subs map[string]Subscription // keyed by provider sub id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: map[string]Subscription{}}
}

func (r *MemoryRepository) Create(ctx context.Context, s Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.SubID] = s
	return nil
}

func (r *MemoryRepository) GetBySubID(ctx context.Context, subID string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) GetByAgent(ctx context.Context, userID, agentID string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.UserID == userID && s.AgentID == agentID {
			return s, nil
		}
	}
	return Subscription{}, ErrNotFound
}

func (r *MemoryRepository) SetState(ctx context.Context, subID string, status SubscriptionStatus, grace, endsAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.GracePeriodEndsAt = grace
	s.EndsAt = endsAt
	r.subs[subID] = s
	return nil
}

func (r *MemoryRepository) ListGraceExpired(ctx context.Context, now time.Time) ([]Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Subscription
	for _, s := range r.subs {
		if s.Status != StatusDeleted && s.GracePeriodEndsAt != nil && s.GracePeriodEndsAt.Before(now) {
			out = append(out, s)
		}
	}
	return out, nil
}
