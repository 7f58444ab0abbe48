package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event names this service reacts to. Everything else is
// acknowledged and ignored.
const (
	EventSubscriptionCreated = "subscription_created"
	EventSubscriptionUpdated = "subscription_updated"
)

// SubscriptionEvent is the parsed, verified webhook payload.
type SubscriptionEvent struct {
	Event   string
	SubID   string
	UserID  string
	AgentID string
	Country string
	Email   string
	Status  SubscriptionStatus
	EndsAt  *time.Time
}

// VerifySignature checks the webhook's HMAC-SHA256 signature over the raw
// body. Constant-time compare; any mismatch means the payload is untrusted
// and must not be parsed.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type webhookPayload struct {
	Meta struct {
		EventName string `json:"event_name"`
		Custom    struct {
			UserID  string `json:"user_id"`
			AgentID string `json:"agent_id"`
			Country string `json:"country"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status    string     `json:"status"`
			UserEmail string     `json:"user_email"`
			EndsAt    *time.Time `json:"ends_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseSubscriptionEvent decodes a verified webhook body.
func ParseSubscriptionEvent(body []byte) (SubscriptionEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return SubscriptionEvent{}, fmt.Errorf("billing: malformed webhook body: %w", err)
	}
	if p.Data.ID == "" {
		return SubscriptionEvent{}, fmt.Errorf("billing: webhook missing subscription id")
	}
	return SubscriptionEvent{
		Event:   p.Meta.EventName,
		SubID:   p.Data.ID,
		UserID:  p.Meta.Custom.UserID,
		AgentID: p.Meta.Custom.AgentID,
		Country: p.Meta.Custom.Country,
		Email:   p.Data.Attributes.UserEmail,
		Status:  SubscriptionStatus(p.Data.Attributes.Status),
		EndsAt:  p.Data.Attributes.EndsAt,
	}, nil
}
