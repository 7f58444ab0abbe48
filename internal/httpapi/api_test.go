package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/audit"
	"github.com/Benrobo/nexusai-sub000/internal/auth"
	"github.com/Benrobo/nexusai-sub000/internal/billing"
	"github.com/Benrobo/nexusai-sub000/internal/calls"
	"github.com/Benrobo/nexusai-sub000/internal/config"
	"github.com/Benrobo/nexusai-sub000/internal/kb"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/internal/users"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(raw), nil)
}

func (m *memCache) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = v
	case string:
		m.data[key] = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type nullProvider struct{}

func (nullProvider) BuyNumber(ctx context.Context, country string) (numbers.ProvisionedNumber, error) {
	return numbers.ProvisionedNumber{Phone: "+15550001111", Sid: "PNtest"}, nil
}

func (nullProvider) ReleaseNumber(ctx context.Context, sid string) error { return nil }

type nullEmbedder struct{}

func (nullEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type recordingMailer struct {
	mu    sync.Mutex
	mails []string
}

func (m *recordingMailer) SendMail(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, to)
	return nil
}

type nullCheckout struct{}

func (nullCheckout) CreateCheckout(ctx context.Context, in billing.CheckoutInput) (string, error) {
	return "https://checkout.example.com/x", nil
}

type nullNotifier struct{}

func (nullNotifier) SendMail(ctx context.Context, to, subject, html string) error { return nil }
func (nullNotifier) SendAlert(ctx context.Context, text string) error             { return nil }

type testEnv struct {
	router  *gin.Engine
	authMgr *auth.Manager
	users   *users.Service
	agents  *agents.MemoryRepository
	mailer  *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authMgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	cache := newMemCache()
	usersSvc := users.NewService(users.NewMemoryRepository(), cache)
	agentsRepo := agents.NewMemoryRepository()
	agentsSvc := agents.NewService(agentsRepo)
	numbersSvc := numbers.NewService(numbers.NewMemoryRepository(), nullProvider{})
	kbSvc := kb.NewService(kb.NewMemoryRepository(), agentsRepo, nullEmbedder{})
	callsSvc := calls.NewService(calls.NewMemoryRepository(), nil)
	billingSvc := billing.NewService(billing.NewMemoryRepository(), agentsRepo, numbersSvc, nullCheckout{}, nullNotifier{}, audit.NewService(audit.NewMemoryRepository()), cache)
	mailer := &recordingMailer{}

	api := New(usersSvc, agentsSvc, numbersSvc, kbSvc, callsSvc, billingSvc, authMgr, nil, mailer)
	r := gin.New()
	api.Register(r)

	return &testEnv{router: r, authMgr: authMgr, users: usersSvc, agents: agentsRepo, mailer: mailer}
}

// signedInRequest attaches a valid session cookie pair for the given user.
func (e *testEnv) signedInRequest(t *testing.T, method, path string, body any, userID, email string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	pair, err := e.authMgr.IssuePair(time.Now(), userID, email)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.CookieToken, Value: pair.AccessToken})
	req.AddCookie(&http.Cookie{Name: auth.CookieUserID, Value: userID})
	return req
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGuardedRouteWithoutSession(t *testing.T) {
	e := newTestEnv(t)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agent", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestSignInSetsSessionCookies(t *testing.T) {
	e := newTestEnv(t)
	body := bytes.NewBufferString(`{"email": "tenant@example.com", "name": "Tenant"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	var hasToken, hasUID bool
	for _, c := range cookies {
		switch c.Name {
		case auth.CookieToken:
			hasToken = c.Value != ""
		case auth.CookieUserID:
			hasUID = c.Value != ""
		}
	}
	if !hasToken || !hasUID {
		t.Fatalf("session cookies not set: %v", cookies)
	}
}

func TestCreateAgentAndDuplicateAntiTheft(t *testing.T) {
	e := newTestEnv(t)

	create := map[string]any{"name": "Guard", "type": "ANTI_THEFT"}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, e.signedInRequest(t, http.MethodPost, "/api/agent", create, "user-1", "t@example.com"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, e.signedInRequest(t, http.MethodPost, "/api/agent", create, "user-1", "t@example.com"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", w.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "DUPLICATE_ENTRY" {
		t.Fatalf("code = %q, want DUPLICATE_ENTRY", resp.Code)
	}
}

func TestGetMissingAgentIs404(t *testing.T) {
	e := newTestEnv(t)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, e.signedInRequest(t, http.MethodGet, "/api/agent/nope", nil, "user-1", "t@example.com"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSendOTPMailsTheCode(t *testing.T) {
	e := newTestEnv(t)

	// The OTP flow needs an existing account.
	u, err := e.users.SignIn(context.Background(), "t@example.com", "Tenant", "", "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, e.signedInRequest(t, http.MethodPost, "/api/user/otp/send", nil, u.ID, u.Email))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(e.mailer.mails) != 1 || e.mailer.mails[0] != "t@example.com" {
		t.Fatalf("mails = %v", e.mailer.mails)
	}
}
