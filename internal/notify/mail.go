// Package notify sends tenant-facing notifications over mail and Telegram.
// Both providers are plain REST APIs, called directly.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMailBaseURL = "https://api.resend.com"

// Mailer delivers transactional email.
type Mailer struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
}

func NewMailer(apiKey, from string) *Mailer {
	return &Mailer{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultMailBaseURL,
		apiKey:  apiKey,
		from:    from,
	}
}

type mailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// APIError is a non-2xx reply from a notification provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// Send delivers one HTML email.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(mailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Provider: "mail", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
