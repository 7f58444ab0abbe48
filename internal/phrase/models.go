package phrase

import "time"

// Phrase is one memoized text-to-speech rendition. The hash covers the
// voice identity and the exact prompt text, so two agents saying the same
// sentence get separate clips.
type Phrase struct {
	ID         string    `json:"id"`
	Hash       string    `json:"hash"`
	AgentName  string    `json:"agent_name"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	Pending    bool      `json:"pending"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}
