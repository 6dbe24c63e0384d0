package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, n int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{Requests: n, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl.SetClock(c.now)
	return rl, c
}

func TestAllowWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}

	c.t = c.t.Add(20 * time.Second)
	ok, retry := rl.Allow("a")
	if ok {
		t.Fatal("third request in window should be rejected")
	}
	if retry != 40*time.Second {
		t.Errorf("retryAfter = %v, want 40s", retry)
	}
	if ok, _ := rl.Allow("b"); !ok {
		t.Error("other clients have their own window")
	}

	c.t = c.t.Add(40 * time.Second)
	if ok, _ := rl.Allow("a"); !ok {
		t.Error("new window should allow again")
	}
	if rl.Rejected() != 1 {
		t.Errorf("Rejected = %d, want 1", rl.Rejected())
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, 1)
	rl.Allow("a")
	rl.Allow("b")

	c.t = c.t.Add(2 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if rl.ActiveClients() != 0 {
		t.Errorf("ActiveClients = %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
