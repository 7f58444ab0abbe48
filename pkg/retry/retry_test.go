package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsAfterFirstSuccess(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffStrategy: BackoffFixed}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffStrategy: BackoffFixed}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoRecoversOnLaterAttempt(t *testing.T) {
	calls := 0
	p := ProvisioningPolicy()
	p.InitialDelay = time.Millisecond
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 5, InitialDelay: time.Second, BackoffStrategy: BackoffFixed}
	err := Do(ctx, p, func(ctx context.Context) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDelayExponentialCapsAtMax(t *testing.T) {
	p := Policy{
		MaxAttempts:     10,
		InitialDelay:    time.Second,
		MaxDelay:        4 * time.Second,
		BackoffStrategy: BackoffExponential,
	}
	if d := p.Delay(1); d != time.Second {
		t.Fatalf("attempt 1: expected 1s, got %v", d)
	}
	if d := p.Delay(2); d != 2*time.Second {
		t.Fatalf("attempt 2: expected 2s, got %v", d)
	}
	if d := p.Delay(6); d != 4*time.Second {
		t.Fatalf("attempt 6: expected cap 4s, got %v", d)
	}
}

func TestDelayZeroForNonPositiveAttempt(t *testing.T) {
	p := MailPolicy()
	if d := p.Delay(0); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}
