package kb

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu      sync.Mutex
	bases   map[string]KnowledgeBase
	sources map[string]DataSource
	links   map[string]map[string]bool // agentID -> kbID set
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bases:   map[string]KnowledgeBase{},
		sources: map[string]DataSource{},
		links:   map[string]map[string]bool{},
	}
}

func (r *MemoryRepository) Create(ctx context.Context, b KnowledgeBase, sources []DataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bases[b.ID] = b
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID, kbID string) (KnowledgeBase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bases[kbID]
	if !ok || b.UserID != userID {
		return KnowledgeBase{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]KnowledgeBase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []KnowledgeBase
	for _, b := range r.bases {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetStatus(ctx context.Context, kbID string, st Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bases[kbID]
	if !ok {
		return ErrNotFound
	}
	b.Status = st
	r.bases[kbID] = b
	return nil
}

func (r *MemoryRepository) SetEmbedding(ctx context.Context, sourceID string, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[sourceID]
	if !ok {
		return ErrNotFound
	}
	s.Embedding = embedding
	r.sources[sourceID] = s
	return nil
}

func (r *MemoryRepository) ListSources(ctx context.Context, kbIDs []string) ([]DataSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range kbIDs {
		want[id] = true
	}
	var out []DataSource
	for _, s := range r.sources {
		if want[s.KbID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, kbID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bases[kbID]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(r.bases, kbID)
	for id, s := range r.sources {
		if s.KbID == kbID {
			delete(r.sources, id)
		}
	}
	for _, set := range r.links {
		delete(set, kbID)
	}
	return nil
}

func (r *MemoryRepository) Link(ctx context.Context, agentID, kbID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.links[agentID]
	if !ok {
		set = map[string]bool{}
		r.links[agentID] = set
	}
	if set[kbID] {
		return ErrDuplicate
	}
	set[kbID] = true
	return nil
}

func (r *MemoryRepository) Unlink(ctx context.Context, agentID, kbID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.links[agentID]
	if !set[kbID] {
		return ErrNotFound
	}
	delete(set, kbID)
	return nil
}

func (r *MemoryRepository) LinkedKbIDs(ctx context.Context, agentID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.links[agentID] {
		out = append(out, id)
	}
	return out, nil
}
