package audit

import (
	"context"
	"errors"
	"testing"
)

func TestAppendRequiresUserAndKind(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if err := svc.Append(context.Background(), Event{Kind: KindGraceStarted}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing user: err = %v", err)
	}
	if err := svc.Append(context.Background(), Event{UserID: "u1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing kind: err = %v", err)
	}
}

func TestAppendFillsIdentityAndTime(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	err := svc.Append(context.Background(), Event{
		UserID:  "u1",
		Kind:    KindSubscriptionAdopted,
		SubID:   "sub-1",
		AgentID: "agent-1",
		Message: "number rented",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("identity not filled: %+v", evs[0])
	}
}

func TestTrailNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	for _, k := range []Kind{KindCheckoutCreated, KindSubscriptionAdopted, KindGraceStarted} {
		if err := svc.Append(ctx, Event{UserID: "u1", Kind: k}); err != nil {
			t.Fatalf("append %s: %v", k, err)
		}
	}
	if err := svc.Append(ctx, Event{UserID: "other", Kind: KindCheckoutCreated}); err != nil {
		t.Fatalf("append: %v", err)
	}

	trail, err := svc.Trail(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail = %d entries, want 2", len(trail))
	}
	if trail[0].Kind != KindGraceStarted || trail[1].Kind != KindSubscriptionAdopted {
		t.Fatalf("order wrong: %+v", trail)
	}
}
