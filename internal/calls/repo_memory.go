package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu       sync.Mutex
	logs     map[string]CallLog
	refIdx   map[string]string
	messages map[string][]Message
	analyses map[string]Analysis
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		logs:     map[string]CallLog{},
		refIdx:   map[string]string{},
		messages: map[string][]Message{},
		analyses: map[string]Analysis{},
	}
}

func (r *MemoryRepository) Create(ctx context.Context, l CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[l.ID] = l
	r.refIdx[l.RefID] = l.ID
	return nil
}

func (r *MemoryRepository) GetByRef(ctx context.Context, refID string) (CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refIdx[refID]
	if !ok {
		return CallLog{}, ErrNotFound
	}
	return r.logs[id], nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID, logID string) (CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[logID]
	if !ok || l.UserID != userID {
		return CallLog{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallLog
	for _, l := range r.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) MarkRead(ctx context.Context, userID, logID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[logID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	l.Read = true
	r.logs[logID] = l
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, logID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[logID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	delete(r.logs, logID)
	delete(r.refIdx, l.RefID)
	delete(r.messages, logID)
	delete(r.analyses, logID)
	return nil
}

func (r *MemoryRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{ByAgent: map[string]int{}}
	for _, l := range r.logs {
		if l.UserID != userID {
			continue
		}
		s.Total++
		s.ByAgent[l.AgentID]++
		if !l.Read {
			s.Unread++
		}
	}
	return s, nil
}

func (r *MemoryRepository) AppendMessage(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.CallLogID] = append(r.messages[m.CallLogID], m)
	return nil
}

func (r *MemoryRepository) ListMessages(ctx context.Context, logID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages[logID]...), nil
}

func (r *MemoryRepository) UpsertAnalysis(ctx context.Context, a Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[a.CallLogID] = a
	return nil
}

func (r *MemoryRepository) GetAnalysis(ctx context.Context, logID string) (Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[logID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}
