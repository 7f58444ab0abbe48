package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultLemonBaseURL = "https://api.lemonsqueezy.com/v1"

// LemonClient talks to the LemonSqueezy JSON:API.
type LemonClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	storeID string
}

func NewLemonClient(apiKey, storeID string) *LemonClient {
	return &LemonClient{
		http:    &http.Client{Timeout: 20 * time.Second},
		baseURL: defaultLemonBaseURL,
		apiKey:  apiKey,
		storeID: storeID,
	}
}

// LemonError is a non-2xx reply from the billing provider.
type LemonError struct {
	Status int
	Body   string
}

func (e *LemonError) Error() string {
	return fmt.Sprintf("lemonsqueezy: status %d: %s", e.Status, e.Body)
}

// CheckoutInput carries the purchase intent embedded into the checkout's
// custom data, which the provider echoes back on the webhook.
type CheckoutInput struct {
	VariantID string
	Email     string
	UserID    string
	AgentID   string
	Country   string
}

type checkoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Email  string            `json:"email,omitempty"`
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
		} `json:"attributes"`
		Relationships struct {
			Store   relationship `json:"store"`
			Variant relationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type relationship struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout opens a hosted checkout session and returns its URL.
func (c *LemonClient) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	var req checkoutRequest
	req.Data.Type = "checkouts"
	req.Data.Attributes.CheckoutData.Email = in.Email
	req.Data.Attributes.CheckoutData.Custom = map[string]string{
		"user_id":  in.UserID,
		"agent_id": in.AgentID,
		"country":  in.Country,
	}
	req.Data.Relationships.Store.Data.Type = "stores"
	req.Data.Relationships.Store.Data.ID = c.storeID
	req.Data.Relationships.Variant.Data.Type = "variants"
	req.Data.Relationships.Variant.Data.ID = in.VariantID

	var resp checkoutResponse
	if err := c.do(ctx, http.MethodPost, "/checkouts", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.Attributes.URL == "" {
		return "", fmt.Errorf("lemonsqueezy: checkout response missing url")
	}
	return resp.Data.Attributes.URL, nil
}

type subscriptionResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status    string     `json:"status"`
			UserEmail string     `json:"user_email"`
			EndsAt    *time.Time `json:"ends_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetSubscription fetches the provider's current view of a subscription.
func (c *LemonClient) GetSubscription(ctx context.Context, subID string) (SubscriptionStatus, *time.Time, error) {
	var resp subscriptionResponse
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subID, nil, &resp); err != nil {
		return "", nil, err
	}
	return SubscriptionStatus(resp.Data.Attributes.Status), resp.Data.Attributes.EndsAt, nil
}

func (c *LemonClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/vnd.api+json")
	if in != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lemonsqueezy: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &LemonError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
