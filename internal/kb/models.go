package kb

import "time"

// Status tracks ingestion progress for a knowledge base.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// KnowledgeBase groups the embedded data sources a sales agent answers from.
type KnowledgeBase struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DataSource is one embedded chunk of tenant content.
// Embedding is null until ingestion finishes for the chunk.
type DataSource struct {
	ID        string    `json:"id"`
	KbID      string    `json:"kb_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentLink binds a knowledge base to a sales agent.
type AgentLink struct {
	AgentID   string    `json:"agent_id"`
	KbID      string    `json:"kb_id"`
	CreatedAt time.Time `json:"created_at"`
}
