package audit

import "time"

// Event is an immutable, append-only audit record of a billing lifecycle
// transition. Events are internal-only and never shown to tenants.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit writes are best-effort; callers must not fail a webhook on them.
type Event struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Kind Kind `json:"kind" db:"kind"`

	// SubID and AgentID identify the subscription and agent the event
	// concerns, when applicable.
	SubID   string `json:"sub_id,omitempty" db:"sub_id"`
	AgentID string `json:"agent_id,omitempty" db:"agent_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Kind string

const (
	KindCheckoutCreated     Kind = "checkout_created"
	KindSubscriptionAdopted Kind = "subscription_adopted"
	KindGraceStarted        Kind = "grace_started"
	KindReactivated         Kind = "subscription_reactivated"
	KindSubscriptionExpired Kind = "subscription_expired"
)
