package numbers

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu        sync.Mutex
	purchased map[string]PurchasedPhoneNumber // keyed by phone
	links     map[string]UsedPhoneNumber      // keyed by phone
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		purchased: map[string]PurchasedPhoneNumber{},
		links:     map[string]UsedPhoneNumber{},
	}
}

func (r *MemoryRepository) GetByPhone(ctx context.Context, phone string) (PurchasedPhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchased[phone]
	if !ok {
		return PurchasedPhoneNumber{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) GetByAgent(ctx context.Context, userID, agentID string) (PurchasedPhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchased {
		if p.UserID == userID && p.AgentID == agentID {
			return p, nil
		}
	}
	return PurchasedPhoneNumber{}, ErrNotFound
}

func (r *MemoryRepository) GetBySubID(ctx context.Context, subID string) (PurchasedPhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchased {
		if p.SubID == subID {
			return p, nil
		}
	}
	return PurchasedPhoneNumber{}, ErrNotFound
}

func (r *MemoryRepository) GetLink(ctx context.Context, phone string) (UsedPhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[phone]
	if !ok {
		return UsedPhoneNumber{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepository) SaveWithLink(ctx context.Context, p PurchasedPhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Mirror the (user_id, agent_id) upsert: drop a previous number for
	// the same agent before inserting the new one.
	for phone, existing := range r.purchased {
		if existing.UserID == p.UserID && existing.AgentID == p.AgentID {
			delete(r.purchased, phone)
			delete(r.links, phone)
		}
	}
	r.purchased[p.Phone] = p
	r.links[p.Phone] = UsedPhoneNumber{Phone: p.Phone, UserID: p.UserID, AgentID: p.AgentID}
	return nil
}

func (r *MemoryRepository) DeleteWithLink(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.purchased, phone)
	delete(r.links, phone)
	return nil
}
