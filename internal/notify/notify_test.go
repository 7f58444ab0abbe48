package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMailerSend(t *testing.T) {
	var got mailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMailer("test-key", "noreply@example.com")
	m.baseURL = srv.URL

	err := m.Send(context.Background(), "tenant@example.com", "Subscription at risk", "<p>Pay up.</p>")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(got.To) != 1 || got.To[0] != "tenant@example.com" {
		t.Fatalf("to = %v", got.To)
	}
	if got.From != "noreply@example.com" || got.Subject != "Subscription at risk" {
		t.Fatalf("request = %+v", got)
	}
}

func TestMailerSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	m := NewMailer("test-key", "bad")
	m.baseURL = srv.URL

	err := m.Send(context.Background(), "tenant@example.com", "s", "b")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", apiErr.Status)
	}
}

func TestTelegramSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("text") == "" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("test-token")
	tg.baseURL = srv.URL

	if err := tg.SendMessage(context.Background(), 42, "your agent has no number"); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestTelegramAPILevelFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("test-token")
	tg.baseURL = srv.URL

	err := tg.SendMessage(context.Background(), 42, "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Body != "chat not found" {
		t.Fatalf("body = %q", apiErr.Body)
	}
}
