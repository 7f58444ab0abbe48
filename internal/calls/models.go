package calls

import "time"

// CallLog is the durable record of one inbound call. RefID correlates the
// log with the ephemeral per-call conversation state.
type CallLog struct {
	ID          string    `json:"id"`
	RefID       string    `json:"ref_id"`
	UserID      string    `json:"user_id"`
	AgentID     string    `json:"agent_id"`
	CallerPhone string    `json:"caller_phone"`
	CalledPhone string    `json:"called_phone"`
	CountryCode string    `json:"country_code,omitempty"`
	Zipcode     string    `json:"zipcode,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one transcript line, append-only.
type Message struct {
	ID        string    `json:"id"`
	CallLogID string    `json:"call_log_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes a tenant's call volume for the dashboard.
type Stats struct {
	Total   int            `json:"total"`
	Unread  int            `json:"unread"`
	ByAgent map[string]int `json:"by_agent"`
}

// Analysis is the AI assessment of a finished call, at most one per log.
type Analysis struct {
	CallLogID  string    `json:"call_log_id"`
	Sentiment  string    `json:"sentiment"`
	RedFlags   []string  `json:"red_flags"`
	Confidence int       `json:"confidence"`
	Summary    string    `json:"summary"`
	UpdatedAt  time.Time `json:"updated_at"`
}
