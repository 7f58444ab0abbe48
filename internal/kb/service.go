// Package kb owns tenant knowledge bases: ingestion with embeddings,
// agent linking, and similarity retrieval for the sales prompt.
package kb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Embedder turns text into a vector. Implemented by the ai service.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// SourceInput is one piece of content submitted for ingestion.
type SourceInput struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// retrieveTopK bounds how many chunks ground a single sales answer.
const retrieveTopK = 4

type Service struct {
	repo     Repository
	agents   agents.Repository
	embedder Embedder
	clock    func() time.Time
}

func NewService(repo Repository, agentsRepo agents.Repository, embedder Embedder) *Service {
	return &Service{repo: repo, agents: agentsRepo, embedder: embedder, clock: time.Now}
}

// Create ingests a new knowledge base: the records are written first with
// an in-progress status, then each source is embedded. A partial embedding
// failure marks the base failed rather than leaving it half-usable.
func (s *Service) Create(ctx context.Context, userID, name string, inputs []SourceInput) (KnowledgeBase, error) {
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return KnowledgeBase{}, fmt.Errorf("%w: user id and name are required", ErrInvalidArgument)
	}
	if len(inputs) == 0 {
		return KnowledgeBase{}, fmt.Errorf("%w: at least one data source is required", ErrInvalidArgument)
	}

	now := s.clock()
	b := KnowledgeBase{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}

	sources := make([]DataSource, 0, len(inputs))
	for _, in := range inputs {
		content := strings.TrimSpace(in.Content)
		if content == "" {
			return KnowledgeBase{}, fmt.Errorf("%w: data source content is required", ErrInvalidArgument)
		}
		sources = append(sources, DataSource{
			ID:        uuid.NewString(),
			KbID:      b.ID,
			Title:     strings.TrimSpace(in.Title),
			URL:       strings.TrimSpace(in.URL),
			Content:   content,
			CreatedAt: now,
		})
	}

	if err := s.repo.Create(ctx, b, sources); err != nil {
		return KnowledgeBase{}, err
	}

	for _, src := range sources {
		vec, err := s.embedder.EmbedText(ctx, src.Content)
		if err != nil {
			logger.From(ctx).Error("data source embedding failed", "kb_id", b.ID, "source_id", src.ID, "err", err)
			if stErr := s.repo.SetStatus(ctx, b.ID, StatusFailed); stErr != nil {
				logger.From(ctx).Warn("kb status update failed", "kb_id", b.ID, "err", stErr)
			}
			b.Status = StatusFailed
			return b, fmt.Errorf("kb: embed source: %w", err)
		}
		if err := s.repo.SetEmbedding(ctx, src.ID, vec); err != nil {
			return b, err
		}
	}

	if err := s.repo.SetStatus(ctx, b.ID, StatusCompleted); err != nil {
		return b, err
	}
	b.Status = StatusCompleted
	return b, nil
}

func (s *Service) Get(ctx context.Context, userID, kbID string) (KnowledgeBase, error) {
	return s.repo.Get(ctx, userID, kbID)
}

func (s *Service) List(ctx context.Context, userID string) ([]KnowledgeBase, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, kbID string) error {
	return s.repo.Delete(ctx, userID, kbID)
}

// LinkAgent binds a knowledge base to one of the tenant's agents.
// Both sides are ownership-checked so a tenant can never link another
// tenant's data.
func (s *Service) LinkAgent(ctx context.Context, userID, agentID, kbID string) error {
	if _, err := s.agents.Get(ctx, userID, agentID); err != nil {
		return err
	}
	b, err := s.repo.Get(ctx, userID, kbID)
	if err != nil {
		return err
	}
	if b.Status != StatusCompleted {
		return fmt.Errorf("%w: knowledge base is not ready", ErrInvalidArgument)
	}
	return s.repo.Link(ctx, agentID, kbID)
}

func (s *Service) UnlinkAgent(ctx context.Context, userID, agentID, kbID string) error {
	if _, err := s.agents.Get(ctx, userID, agentID); err != nil {
		return err
	}
	return s.repo.Unlink(ctx, agentID, kbID)
}

// LinkedKbIDs reports the knowledge bases linked to an agent.
func (s *Service) LinkedKbIDs(ctx context.Context, agentID string) ([]string, error) {
	return s.repo.LinkedKbIDs(ctx, agentID)
}

// Retrieve returns the chunks most similar to the query, concatenated as
// grounding text for the sales prompt.
func (s *Service) Retrieve(ctx context.Context, kbIDs []string, query string) (string, error) {
	sources, err := s.repo.ListSources(ctx, kbIDs)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return "", nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		// Nothing to score against; lead with the first chunks.
		return renderSources(sources, retrieveTopK), nil
	}

	qVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("kb: embed query: %w", err)
	}

	type scored struct {
		src   DataSource
		score float64
	}
	ranked := make([]scored, 0, len(sources))
	for _, src := range sources {
		if len(src.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, scored{src: src, score: cosineSimilarity(qVec, src.Embedding)})
	}
	if len(ranked) == 0 {
		return renderSources(sources, retrieveTopK), nil
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	top := make([]DataSource, 0, retrieveTopK)
	for i, r := range ranked {
		if i == retrieveTopK {
			break
		}
		top = append(top, r.src)
	}
	return renderSources(top, len(top)), nil
}

func renderSources(sources []DataSource, max int) string {
	var b strings.Builder
	for i, src := range sources {
		if i == max {
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		if src.Title != "" {
			b.WriteString(src.Title)
			b.WriteString("\n")
		}
		b.WriteString(src.Content)
	}
	return b.String()
}

// cosineSimilarity scores two vectors; mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
