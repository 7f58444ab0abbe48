package calls

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Benrobo/nexusai-sub000/internal/ai"
	"github.com/Benrobo/nexusai-sub000/internal/telephony"
)

type fakeAnalyzer struct {
	calls      int
	assessment ai.CallAssessment
	err        error
}

func (f *fakeAnalyzer) AnalyzeCall(ctx context.Context, transcript []telephony.ChatMessage) (ai.CallAssessment, error) {
	f.calls++
	if f.err != nil {
		return ai.CallAssessment{}, f.err
	}
	return f.assessment, nil
}

func newTestService() (*Service, *MemoryRepository, *fakeAnalyzer) {
	repo := NewMemoryRepository()
	an := &fakeAnalyzer{assessment: ai.CallAssessment{
		Sentiment:  "negative",
		RedFlags:   []string{"urgent payment demand"},
		Confidence: 85,
		Summary:    "Likely gift card scam.",
	}}
	return NewService(repo, an), repo, an
}

func startLoggedCall(t *testing.T, svc *Service) string {
	t.Helper()
	const ref = "ref-1"
	err := svc.StartCall(context.Background(), ref, "user-1", "agent-1", "+15559990000", "+15550001111", "US", "94016")
	if err != nil {
		t.Fatalf("start call: %v", err)
	}
	return ref
}

func TestStartCallIdempotentPerRef(t *testing.T) {
	svc, _, _ := newTestService()
	ref := startLoggedCall(t, svc)

	if err := svc.StartCall(context.Background(), ref, "user-1", "agent-1", "+15559990000", "+15550001111", "US", "94016"); err != nil {
		t.Fatalf("second start: %v", err)
	}

	logs, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
}

func TestAppendAndGetTranscript(t *testing.T) {
	svc, _, _ := newTestService()
	ref := startLoggedCall(t, svc)
	ctx := context.Background()

	if err := svc.AppendMessage(ctx, ref, "agent", "Who is calling?"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.AppendMessage(ctx, ref, "caller", "Parcel delivery."); err != nil {
		t.Fatalf("append: %v", err)
	}

	logs, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	_, msgs, err := svc.Get(ctx, "user-1", logs[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "agent" || msgs[1].Role != "caller" {
		t.Fatalf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

func TestAppendMessageUnknownRef(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.AppendMessage(context.Background(), "missing", "agent", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAnalyzeStoresAssessment(t *testing.T) {
	svc, _, an := newTestService()
	ref := startLoggedCall(t, svc)
	ctx := context.Background()
	if err := svc.AppendMessage(ctx, ref, "caller", "You owe the IRS. Pay with gift cards."); err != nil {
		t.Fatalf("append: %v", err)
	}

	logs, _ := svc.List(ctx, "user-1")
	a, err := svc.Analyze(ctx, "user-1", logs[0].ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Confidence != 85 || a.Sentiment != "negative" {
		t.Fatalf("analysis = %+v", a)
	}

	stored, err := svc.GetAnalysis(ctx, "user-1", logs[0].ID)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if stored.Summary != "Likely gift card scam." {
		t.Fatalf("stored = %+v", stored)
	}
	if an.calls != 1 {
		t.Fatalf("analyzer calls = %d, want 1", an.calls)
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	svc, _, an := newTestService()
	startLoggedCall(t, svc)

	logs, _ := svc.List(context.Background(), "user-1")
	if _, err := svc.Analyze(context.Background(), "user-1", logs[0].ID); err == nil {
		t.Fatal("expected error")
	}
	if an.calls != 0 {
		t.Fatalf("analyzer calls = %d, want 0", an.calls)
	}
}

func TestTenantScoping(t *testing.T) {
	svc, _, _ := newTestService()
	ref := startLoggedCall(t, svc)
	_ = ref

	logs, _ := svc.List(context.Background(), "user-1")
	if _, _, err := svc.Get(context.Background(), "someone-else", logs[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "someone-else", logs[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant delete err = %v, want ErrNotFound", err)
	}
	if err := svc.MarkRead(context.Background(), "user-1", logs[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}

func TestStatsCountsUnreadPerAgent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i, agentID := range []string{"agent-1", "agent-1", "agent-2"} {
		ref := fmt.Sprintf("ref-%d", i)
		if err := svc.StartCall(ctx, ref, "user-1", agentID, "+15559990000", "+15550001111", "US", ""); err != nil {
			t.Fatalf("start %s: %v", ref, err)
		}
	}
	logs, _ := svc.List(ctx, "user-1")
	if err := svc.MarkRead(ctx, "user-1", logs[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	stats, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Unread != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByAgent["agent-1"] != 2 || stats.ByAgent["agent-2"] != 1 {
		t.Fatalf("by agent = %v", stats.ByAgent)
	}

	other, err := svc.Stats(ctx, "someone-else")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if other.Total != 0 {
		t.Fatalf("cross-tenant total = %d", other.Total)
	}
}
