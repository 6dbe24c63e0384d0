package log

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf, Component: ComponentHTTP})

	var got *Logger
	h := Middleware(base)(
		RequestIDMiddleware(func(*http.Request) string { return "req-7" })(
			ComponentMiddleware(ComponentLedger)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					got = FromContext(r.Context())
					got.InfoContext(r.Context(), "inside")
				}))))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentLedger {
		t.Fatalf("handler logger component = %v", got)
	}
	out := buf.String()
	for _, want := range []string{`"request_id":"req-7"`, `"component":"ledger"`, `"msg":"inside"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("FromContext returned no logger")
	}
	if l.Component() != ComponentApp {
		t.Errorf("fallback component = %q", l.Component())
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	sl.LogError(context.Background(), "refresh failed", errors.New("boom"), ComponentLedger, OpRefresh, nil)

	out := buf.String()
	for _, want := range []string{`"level":"ERROR"`, `"error":"boom"`, `"operation":"refresh"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}
