package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"amokanban/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

// ────────────────────────────────────────────────────────────────────────────
// Request logging
// ────────────────────────────────────────────────────────────────────────────

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if len(seen) != 32 {
		t.Errorf("expected generated 32 char id, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q != context id %q", rec.Header().Get(RequestIDHeader), seen)
	}
}

func TestRequestLogging_KeepsCallerRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc-123" {
		t.Errorf("got %q", seen)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Recovery
// ────────────────────────────────────────────────────────────────────────────

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body["code"] != "INTERNAL_ERROR" {
		t.Errorf("body = %v", body)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Content type
// ────────────────────────────────────────────────────────────────────────────

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard(), ContentTypeJSON, ContentTypeForm)(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"json", http.MethodPost, "application/json; charset=utf-8", "{}", http.StatusOK},
		{"form", http.MethodPost, ContentTypeForm, "a=1", http.StatusOK},
		{"upper case", http.MethodPost, "Application/JSON", "{}", http.StatusOK},
		{"xml rejected", http.MethodPost, "application/xml", "<a/>", http.StatusUnsupportedMediaType},
		{"missing rejected", http.MethodPost, "", "{}", http.StatusUnsupportedMediaType},
		{"empty body passes", http.MethodPost, "", "", http.StatusOK},
		{"get ignored", http.MethodGet, "text/plain", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/webhook", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// ────────────────────────────────────────────────────────────────────────────
// CORS and size limit
// ────────────────────────────────────────────────────────────────────────────

func TestCORS(t *testing.T) {
	var called bool
	h := CORS("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/amo-deals", nil))

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("preflight: status=%d body=%q", rec.Code, rec.Body.String())
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("origin header = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/amo-deals", nil))
	if !called {
		t.Error("GET should reach the handler")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("methods header = %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Timeout
// ────────────────────────────────────────────────────────────────────────────

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body["code"] != "TIMEOUT" {
		t.Errorf("body = %v", body)
	}
}

func TestRequestTimeout_FastHandlerKeepsHeaders(t *testing.T) {
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "1")
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusCreated || rec.Header().Get("X-Custom") != "1" {
		t.Errorf("status=%d header=%q", rec.Code, rec.Header().Get("X-Custom"))
	}
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("inside timeout")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Idempotency
// ────────────────────────────────────────────────────────────────────────────

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	}))

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader("{}"))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("k1")
	second := send("k1")
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("handler called %d times", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replayed body %q != %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay header missing")
	}

	send("")
	send("")
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("requests without key must not be cached, calls=%d", calls)
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", nil)
		req.Header.Set(IdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 || store.Len() != 0 {
		t.Errorf("calls=%d stored=%d", calls, store.Len())
	}
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	now := time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set("k", &CachedResponse{StatusCode: 200})
	if _, ok := store.Get("k"); !ok {
		t.Fatal("expected hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("k"); ok {
		t.Error("expected expiry")
	}
	store.Stop()
}

// ────────────────────────────────────────────────────────────────────────────
// Rate limiting
// ────────────────────────────────────────────────────────────────────────────

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	now := time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients are independent")
	}
	if !rl.Allow("") {
		t.Error("empty key bypasses the limiter")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("window should have slid")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, nil, logger.Discard())
	defer rl.Stop()
	h := RateLimit(rl)(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Errorf("first = %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("second = %d", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Errorf("got %q", got)
	}

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("got %q", got)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Webhook signature
// ────────────────────────────────────────────────────────────────────────────

func TestWebhookSignatureVerification(t *testing.T) {
	const secret = "s3cret"
	body := `leads[add][0][id]=1`

	var gotBody string
	h := WebhookSignatureVerification(secret, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid", Sign([]byte(body), secret), http.StatusOK},
		{"valid with prefix", "sha256=" + Sign([]byte(body), secret), http.StatusOK},
		{"upper case hex", strings.ToUpper(Sign([]byte(body), secret)), http.StatusOK},
		{"wrong secret", Sign([]byte(body), "other"), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody = ""
			req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && gotBody != body {
				t.Errorf("handler saw body %q", gotBody)
			}
		})
	}
}
