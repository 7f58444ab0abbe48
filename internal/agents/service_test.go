package agents

import (
	"context"
	"errors"
	"testing"
)

func TestCreateRejectsInvalidArgs(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	_, err := svc.Create(context.Background(), "", CreateRequest{Name: "a", Type: TypeChatbot})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, err = svc.Create(context.Background(), "u1", CreateRequest{Name: "  ", Type: TypeChatbot})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, err = svc.Create(context.Background(), "u1", CreateRequest{Name: "a", Type: AgentType("ROBOT")})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad type, got %v", err)
	}
}

func TestCreateAllowsOnlyOneAntiTheftPerTenant(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "screener", Type: TypeAntiTheft}); err != nil {
		t.Fatalf("first anti-theft: %v", err)
	}
	_, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "screener 2", Type: TypeAntiTheft})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// A different tenant is unaffected.
	if _, err := svc.Create(context.Background(), "u2", CreateRequest{Name: "screener", Type: TypeAntiTheft}); err != nil {
		t.Fatalf("other tenant anti-theft: %v", err)
	}

	// Multiple sales assistants are fine.
	if _, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "sales a", Type: TypeSalesAssistant}); err != nil {
		t.Fatalf("sales a: %v", err)
	}
	if _, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "sales b", Type: TypeSalesAssistant}); err != nil {
		t.Fatalf("sales b: %v", err)
	}
}

func TestAgentsStartDeactivated(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	a, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "sales", Type: TypeSalesAssistant})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Activated {
		t.Fatalf("expected new agent deactivated")
	}

	a, err = svc.SetActivated(context.Background(), "u1", a.ID, true)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !a.Activated {
		t.Fatalf("expected agent activated")
	}
}

func TestGetIsTenantScoped(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	a, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "sales", Type: TypeSalesAssistant})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "u2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}
