package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const testSecret = "whsec-test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody() []byte {
	return []byte(`{
		"meta": {
			"event_name": "subscription_created",
			"custom_data": {"user_id": "user-1", "agent_id": "agent-1", "country": "US"}
		},
		"data": {
			"id": "sub-1",
			"attributes": {"status": "active", "user_email": "tenant@example.com", "ends_at": null}
		}
	}`)
}

func newWebhookRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	NewWebhookHandler(f.svc, testSecret).Register(r)
	return r, f
}

func TestWebhookValidSignature(t *testing.T) {
	r, f := newWebhookRouter(t)
	body := webhookBody()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if f.numbers.provisions != 1 {
		t.Fatalf("provisions = %d, want 1", f.numbers.provisions)
	}
}

func TestWebhookBadSignatureMutatesNothing(t *testing.T) {
	r, f := newWebhookRouter(t)
	body := webhookBody()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set(signatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if f.numbers.provisions != 0 {
		t.Fatalf("provisions = %d, want 0", f.numbers.provisions)
	}
	if _, err := f.repo.GetBySubID(context.Background(), "sub-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row was created despite bad signature, err = %v", err)
	}
}

func TestWebhookMissingSignature(t *testing.T) {
	r, f := newWebhookRouter(t)
	body := webhookBody()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if f.numbers.provisions != 0 {
		t.Fatalf("provisions = %d, want 0", f.numbers.provisions)
	}
}

func TestWebhookUnhandledEventAcknowledged(t *testing.T) {
	r, f := newWebhookRouter(t)
	body := []byte(`{"meta": {"event_name": "order_created"}, "data": {"id": "ord-1", "attributes": {}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if f.numbers.provisions != 0 {
		t.Fatalf("provisions = %d, want 0", f.numbers.provisions)
	}
}

func TestWebhookProcessingFailureIs500(t *testing.T) {
	r, f := newWebhookRouter(t)
	f.numbers.provErr = errors.New("twilio down")
	body := webhookBody()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte("payload")
	if !VerifySignature(testSecret, body, sign(body)) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(testSecret, body, sign([]byte("other"))) {
		t.Fatal("wrong-body signature accepted")
	}
	if VerifySignature(testSecret, body, "") {
		t.Fatal("empty signature accepted")
	}
	if VerifySignature("", body, sign(body)) {
		t.Fatal("empty secret accepted")
	}
}
