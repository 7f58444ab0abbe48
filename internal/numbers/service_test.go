package numbers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Benrobo/nexusai-sub000/pkg/retry"
)

type fakeProvider struct {
	buyCalls     int
	failuresLeft int
	released     []string
	buyErr       error
	bundleSid    string
}

func (f *fakeProvider) BuyNumber(ctx context.Context, country string) (ProvisionedNumber, error) {
	f.buyCalls++
	if f.buyErr != nil {
		return ProvisionedNumber{}, f.buyErr
	}
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return ProvisionedNumber{}, errors.New("transient provider error")
	}
	return ProvisionedNumber{Phone: "+15550100", Sid: "PN123", BundleSid: f.bundleSid}, nil
}

func (f *fakeProvider) ReleaseNumber(ctx context.Context, sid string) error {
	f.released = append(f.released, sid)
	return nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}
}

func TestProvisionRetriesTransientFailures(t *testing.T) {
	repo := NewMemoryRepository()
	provider := &fakeProvider{failuresLeft: 2}
	svc := NewService(repo, provider)
	svc.policy = fastPolicy(3)

	p, err := svc.Provision(context.Background(), ProvisionRequest{
		UserID: "u1", AgentID: "a1", SubID: "sub_1", Country: "US",
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if provider.buyCalls != 3 {
		t.Fatalf("expected 3 buy attempts, got %d", provider.buyCalls)
	}
	if p.Phone != "+15550100" || p.PhoneNumberSid != "PN123" {
		t.Fatalf("unexpected purchase %+v", p)
	}

	link, err := repo.GetLink(context.Background(), "+15550100")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link.AgentID != "a1" || link.UserID != "u1" {
		t.Fatalf("unexpected link %+v", link)
	}
}

func TestProvisionGivesUpAfterMaxAttempts(t *testing.T) {
	provider := &fakeProvider{buyErr: errors.New("region unavailable")}
	svc := NewService(NewMemoryRepository(), provider)
	svc.policy = fastPolicy(3)

	_, err := svc.Provision(context.Background(), ProvisionRequest{
		UserID: "u1", AgentID: "a1", SubID: "sub_1",
	})
	if !errors.Is(err, ErrProvisioning) {
		t.Fatalf("expected ErrProvisioning, got %v", err)
	}
	if provider.buyCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.buyCalls)
	}
}

func TestProvisionRequiresIdentifiers(t *testing.T) {
	svc := NewService(NewMemoryRepository(), &fakeProvider{})
	_, err := svc.Provision(context.Background(), ProvisionRequest{UserID: "u1"})
	if !errors.Is(err, ErrInvalidArg) {
		t.Fatalf("expected ErrInvalidArg, got %v", err)
	}
}

func TestReleaseBySubIDRemovesRowsAndProviderNumber(t *testing.T) {
	repo := NewMemoryRepository()
	provider := &fakeProvider{}
	svc := NewService(repo, provider)
	svc.policy = fastPolicy(1)

	if _, err := svc.Provision(context.Background(), ProvisionRequest{
		UserID: "u1", AgentID: "a1", SubID: "sub_1",
	}); err != nil {
		t.Fatalf("provision: %v", err)
	}

	if err := svc.ReleaseBySubID(context.Background(), "sub_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(provider.released) != 1 || provider.released[0] != "PN123" {
		t.Fatalf("expected provider release of PN123, got %v", provider.released)
	}
	if _, err := repo.GetByPhone(context.Background(), "+15550100"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected row deleted, got %v", err)
	}
	if _, err := repo.GetLink(context.Background(), "+15550100"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected link deleted, got %v", err)
	}
}

func TestProvisionRecordsRegulatoryBundle(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, &fakeProvider{bundleSid: "BU456"})
	svc.policy = fastPolicy(1)

	if _, err := svc.Provision(context.Background(), ProvisionRequest{
		UserID: "u1", AgentID: "a1", SubID: "sub_1", Country: "DE",
	}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	p, err := repo.GetByAgent(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.BundleSid != "BU456" {
		t.Fatalf("bundle sid = %q, want BU456", p.BundleSid)
	}
}

func TestReprovisionSameAgentReplacesNumber(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, &fakeProvider{})
	svc.policy = fastPolicy(1)

	if _, err := svc.Provision(context.Background(), ProvisionRequest{UserID: "u1", AgentID: "a1", SubID: "sub_1"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if _, err := svc.Provision(context.Background(), ProvisionRequest{UserID: "u1", AgentID: "a1", SubID: "sub_2"}); err != nil {
		t.Fatalf("reprovision: %v", err)
	}
	p, err := repo.GetByAgent(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.SubID != "sub_2" {
		t.Fatalf("expected latest sub id, got %q", p.SubID)
	}
}
