package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

func TestLimiter_Allow(t *testing.T) {
	l := ratelimit.New(2, time.Hour)
	defer l.Stop()

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests refused")
	}
	if l.Allow("a") {
		t.Error("third request allowed")
	}
	if !l.Allow("b") {
		t.Error("other key refused")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("remaining = %d", got)
	}
	if d := l.RetryAfter("a"); d <= 0 || d > time.Hour {
		t.Errorf("retry after = %v", d)
	}

	l.Reset("a")
	if got := l.Remaining("a"); got != 2 {
		t.Errorf("remaining after reset = %d", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("k") || l.Allow("k") {
		t.Fatal("limit of one not enforced")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("new window refused")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": " 10.0.0.1 , 10.0.0.2"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.1.1.1:80", "10.0.0.9"},
		{"remote with port", nil, "192.168.1.5:4321", "192.168.1.5"},
		{"remote without port", nil, "192.168.1.5", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ratelimit.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerIP(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	defer l.Stop()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := ratelimit.PerIP(l, "session", zap.NewNop())(ok)

	send := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := send("10.0.0.1:1"); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := send("10.0.0.1:2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := send("10.0.0.2:1"); rec.Code != http.StatusNoContent {
		t.Errorf("other ip status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ratelimit.PerIP(nil, "x", zap.NewNop())(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("nil limiter status = %d", rec.Code)
	}
}
