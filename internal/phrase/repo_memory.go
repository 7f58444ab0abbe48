package phrase

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]Phrase
	hashIdx map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    map[string]Phrase{},
		hashIdx: map[string]string{},
	}
}

func (r *MemoryRepository) GetByHash(ctx context.Context, hash string) (Phrase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.hashIdx[hash]
	if !ok {
		return Phrase{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) Create(ctx context.Context, p Phrase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	r.hashIdx[p.Hash] = p.ID
	return nil
}

func (r *MemoryRepository) MarkReady(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Pending = false
	r.byID[id] = p
	return nil
}

func (r *MemoryRepository) Touch(ctx context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.LastUsedAt = usedAt
	r.byID[id] = p
	return nil
}

func (r *MemoryRepository) ListStale(ctx context.Context, lastUsedBefore time.Time) ([]Phrase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Phrase
	for _, p := range r.byID {
		if !p.Pending && p.LastUsedAt.Before(lastUsedBefore) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.hashIdx, p.Hash)
	return nil
}
