package numbers

import "time"

// PurchasedPhoneNumber records a provider number rented for an agent.
//
// Invariant: at most one active purchased number per (user, agent) pair.
type PurchasedPhoneNumber struct {
	ID             string `json:"id" db:"id"`
	UserID         string `json:"user_id" db:"user_id"`
	AgentID        string `json:"agent_id" db:"agent_id"`
	Phone          string `json:"phone" db:"phone"`
	PhoneNumberSid string `json:"phone_number_sid" db:"phone_number_sid"`
	BundleSid      string `json:"bundle_sid,omitempty" db:"bundle_sid"`
	SubID          string `json:"sub_id" db:"sub_id"`
	Country        string `json:"country" db:"country"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UsedPhoneNumber is the denormalized phone -> agent link used for fast
// inbound-call routing.
//
// Invariant: a phone maps to at most one row (global uniqueness).
type UsedPhoneNumber struct {
	Phone   string `json:"phone" db:"phone"`
	UserID  string `json:"user_id" db:"user_id"`
	AgentID string `json:"agent_id" db:"agent_id"`
}
