package agents

import "time"

// AgentType enumerates the supported AI personas.
type AgentType string

const (
	TypeAntiTheft      AgentType = "ANTI_THEFT"
	TypeSalesAssistant AgentType = "SALES_ASSISTANT"
	TypeChatbot        AgentType = "CHATBOT"
)

func (t AgentType) Valid() bool {
	switch t {
	case TypeAntiTheft, TypeSalesAssistant, TypeChatbot:
		return true
	default:
		return false
	}
}

// Agent is a tenant-configured AI persona bound to at most one phone number
// or chat widget.
//
// Tenancy invariant: UserID is required on every row. At most one ANTI_THEFT
// agent may exist per tenant.
type Agent struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Type      AgentType `json:"type" db:"type"`
	Activated bool      `json:"activated" db:"activated"`

	// WelcomeMessage overrides the default initial prompt for chat widgets.
	WelcomeMessage string `json:"welcome_message,omitempty" db:"welcome_message"`

	// EscalationNumber, when set on a sales assistant, is dialed when a
	// conversation escalates to a human.
	EscalationNumber string `json:"escalation_number,omitempty" db:"escalation_number"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Settings are the mutable per-agent knobs exposed on the dashboard.
type Settings struct {
	Name             string `json:"name"`
	WelcomeMessage   string `json:"welcome_message,omitempty"`
	EscalationNumber string `json:"escalation_number,omitempty"`
}
