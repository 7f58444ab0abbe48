package kb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
)

// fakeEmbedder maps known phrases to fixed vectors so similarity ordering
// is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func newTestService() (*Service, *MemoryRepository, *agents.MemoryRepository, *fakeEmbedder) {
	repo := NewMemoryRepository()
	agentsRepo := agents.NewMemoryRepository()
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	return NewService(repo, agentsRepo, emb), repo, agentsRepo, emb
}

func seedAgent(t *testing.T, repo *agents.MemoryRepository) agents.Agent {
	t.Helper()
	a := agents.Agent{ID: "agent-1", UserID: "user-1", Name: "Riley", Type: agents.TypeSalesAssistant, Activated: true}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return a
}

func TestCreateEmbedsAllSources(t *testing.T) {
	svc, repo, _, _ := newTestService()

	b, err := svc.Create(context.Background(), "user-1", "Store FAQ", []SourceInput{
		{Title: "Hours", Content: "We are open 9 to 5 on weekdays."},
		{Title: "Returns", Content: "Returns accepted within 30 days."},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", b.Status)
	}

	sources, err := repo.ListSources(context.Background(), []string{b.ID})
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	for _, s := range sources {
		if len(s.Embedding) == 0 {
			t.Fatalf("source %q has no embedding", s.Title)
		}
	}
}

func TestCreateEmbeddingFailureMarksFailed(t *testing.T) {
	svc, repo, _, emb := newTestService()
	emb.err = errors.New("quota exceeded")

	b, err := svc.Create(context.Background(), "user-1", "Store FAQ", []SourceInput{
		{Title: "Hours", Content: "We are open 9 to 5."},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	got, err := repo.Get(context.Background(), "user-1", b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	cases := []struct {
		name   string
		user   string
		title  string
		inputs []SourceInput
	}{
		{"no user", "", "FAQ", []SourceInput{{Content: "x"}}},
		{"no name", "user-1", "  ", []SourceInput{{Content: "x"}}},
		{"no sources", "user-1", "FAQ", nil},
		{"empty content", "user-1", "FAQ", []SourceInput{{Content: "  "}}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.user, tc.title, tc.inputs); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", tc.name, err)
		}
	}
}

func TestLinkAgentOwnershipAndReadiness(t *testing.T) {
	svc, repo, agentsRepo, _ := newTestService()
	a := seedAgent(t, agentsRepo)

	b, err := svc.Create(context.Background(), a.UserID, "FAQ", []SourceInput{{Content: "open 9 to 5"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.LinkAgent(context.Background(), "someone-else", a.ID, b.ID); !errors.Is(err, agents.ErrNotFound) {
		t.Fatalf("cross-tenant link err = %v, want agents.ErrNotFound", err)
	}
	if err := svc.LinkAgent(context.Background(), a.UserID, a.ID, b.ID); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.LinkAgent(context.Background(), a.UserID, a.ID, b.ID); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("relink err = %v, want ErrDuplicate", err)
	}

	if err := repo.SetStatus(context.Background(), b.ID, StatusFailed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := svc.LinkAgent(context.Background(), a.UserID, a.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing kb err = %v, want ErrNotFound", err)
	}

	ids, err := svc.LinkedKbIDs(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("linked ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("linked ids = %v", ids)
	}
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	svc, _, _, emb := newTestService()
	emb.vectors["We are open 9 to 5 on weekdays."] = []float32{1, 0, 0}
	emb.vectors["Returns accepted within 30 days."] = []float32{0, 1, 0}
	emb.vectors["what are your hours?"] = []float32{0.9, 0.1, 0}

	b, err := svc.Create(context.Background(), "user-1", "FAQ", []SourceInput{
		{Title: "Hours", Content: "We are open 9 to 5 on weekdays."},
		{Title: "Returns", Content: "Returns accepted within 30 days."},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := svc.Retrieve(context.Background(), []string{b.ID}, "what are your hours?")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !strings.Contains(out, "open 9 to 5") {
		t.Fatalf("grounding missing hours chunk:\n%s", out)
	}
	hoursIdx := strings.Index(out, "open 9 to 5")
	returnsIdx := strings.Index(out, "Returns accepted")
	if returnsIdx >= 0 && returnsIdx < hoursIdx {
		t.Fatalf("hours chunk not ranked first:\n%s", out)
	}
}

func TestRetrieveEmptyKbList(t *testing.T) {
	svc, _, _, _ := newTestService()
	out, err := svc.Retrieve(context.Background(), nil, "anything")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if out != "" {
		t.Fatalf("out = %q, want empty", out)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors = %f, want ~1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors = %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("mismatched lengths = %f, want 0", got)
	}
}
