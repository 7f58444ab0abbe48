package telephony

import (
	"context"
	"time"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

// Cache TTLs. Routing lookups are re-fetched hourly; per-call state carries
// a generous backstop TTL so an error path that misses the explicit delete
// cannot leak the key forever.
const (
	routingCacheTTL = time.Hour
	callStateTTL    = 4 * time.Hour
)

// PhoneInfo is the cached routing view of a purchased number: the purchase
// row plus every agent owned by the purchasing tenant.
type PhoneInfo struct {
	Purchased numbers.PurchasedPhoneNumber `json:"purchased"`
	Agents    []agents.Agent               `json:"agents"`
}

func phoneInfoKey(phone string) string { return "phone_info_" + phone }
func agentLinkKey(phone string) string { return "agent_link_" + phone }

// ChatMessage is one turn of the transcript carried in conversation state.
type ChatMessage struct {
	Role    string `json:"role"` // "caller" or "agent"
	Content string `json:"content"`
}

// CallState names the per-call state machine position.
type CallState string

const (
	StateInit      CallState = "INIT"
	StateGathering CallState = "GATHERING"
)

// ConversationState is the ephemeral per-call context kept in Redis under
// CallRef.Key(). It is deleted exactly once when the call reaches a
// terminal state; the TTL is a leak backstop only.
type ConversationState struct {
	CallerPhone string    `json:"caller_phone"`
	CalledPhone string    `json:"called_phone"`
	CallSid     string    `json:"call_sid"`
	State       CallState `json:"state"`

	CountryCode string `json:"country_code,omitempty"`
	Zipcode     string `json:"zipcode,omitempty"`

	// KbIDs are the knowledge bases linked to a sales assistant, resolved
	// once at call start.
	KbIDs []string `json:"kb_ids,omitempty"`

	History []ChatMessage `json:"history,omitempty"`
}

// StateStore wraps the cache for per-call conversation state.
type StateStore struct {
	cache utils.Cmdable
}

func NewStateStore(cache utils.Cmdable) *StateStore {
	return &StateStore{cache: cache}
}

func (s *StateStore) Get(ctx context.Context, ref CallRef) (ConversationState, error) {
	var st ConversationState
	if err := utils.GetJSON(ctx, s.cache, ref.Key(), &st); err != nil {
		return ConversationState{}, err
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, ref CallRef, st ConversationState) error {
	return utils.SetJSON(ctx, s.cache, ref.Key(), st, callStateTTL)
}

func (s *StateStore) Delete(ctx context.Context, ref CallRef) error {
	return s.cache.Del(ctx, ref.Key()).Err()
}
