package billing

import "time"

// SubscriptionStatus mirrors the provider's lifecycle states, plus the
// local terminal state set by the grace-period sweep.
type SubscriptionStatus string

const (
	StatusOnTrial   SubscriptionStatus = "on_trial"
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusUnpaid    SubscriptionStatus = "unpaid"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
	StatusPaused    SubscriptionStatus = "paused"
	StatusDeleted   SubscriptionStatus = "deleted"
)

// atRisk reports whether a status starts the grace-period countdown.
func (s SubscriptionStatus) atRisk() bool {
	switch s {
	case StatusCancelled, StatusExpired, StatusPastDue, StatusUnpaid:
		return true
	}
	return false
}

// Subscription is the local record of a provider subscription, bound to
// one tenant agent and (through SubID) its rented phone number.
type Subscription struct {
	ID      string             `json:"id"`
	SubID   string             `json:"sub_id"`
	UserID  string             `json:"user_id"`
	AgentID string             `json:"agent_id"`
	Email   string             `json:"email"`
	Status  SubscriptionStatus `json:"status"`

	// GracePeriodEndsAt is set when the subscription goes at-risk; the
	// sweep releases the number once it passes.
	GracePeriodEndsAt *time.Time `json:"grace_period_ends_at,omitempty"`
	EndsAt            *time.Time `json:"ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingPurchase is the checkout intent cached in Redis between the
// dashboard starting a checkout and the provider webhook confirming it.
type PendingPurchase struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
	Country string `json:"country"`
}
