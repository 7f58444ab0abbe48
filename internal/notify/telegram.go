package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts messages through the Bot API.
type Telegram struct {
	http     *http.Client
	baseURL  string
	botToken string
}

func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  defaultTelegramBaseURL,
		botToken: botToken,
	}
}

// SendMessage delivers one text message to a chat.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: "telegram", Status: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("notify: telegram reply: %w", err)
	}
	if !result.OK {
		return &APIError{Provider: "telegram", Status: resp.StatusCode, Body: result.Description}
	}
	return nil
}
