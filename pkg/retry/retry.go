// Package retry provides a single retry policy abstraction applied to all
// outbound provider calls (telephony provisioning, transactional email).
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // same delay each attempt
	BackoffLinear      BackoffType = "linear"      // delay grows linearly
	BackoffExponential BackoffType = "exponential" // delay doubles each attempt
)

// Policy defines a retry strategy.
type Policy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffStrategy BackoffType
	JitterFactor    float64 // 0.0-1.0
}

// ProvisioningPolicy covers telephony number provisioning: provider
// number-creation can transiently fail, so retry a few times with backoff.
func ProvisioningPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        15 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.25,
	}
}

// MailPolicy covers transactional email delivery.
func MailPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialDelay:    2 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffFixed,
		JitterFactor:    0.1,
	}
}

// Delay calculates the sleep before the given attempt (1-based).
// Attempt 0 or negative returns 0.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Do runs fn up to MaxAttempts times, sleeping per the policy between
// attempts. The last error is returned when every attempt fails. Context
// cancellation aborts the wait and returns ctx.Err().
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}
