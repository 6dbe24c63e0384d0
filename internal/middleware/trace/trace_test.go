package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	applog "kitchenledger/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Format: "json", Output: buf, Component: applog.ComponentHTTP})
}

func TestHandlerLogsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "10.0.0.9" })

	var seenComponent string
	h := chimw.RequestID(m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenComponent = applog.FromContext(r.Context()).Component()
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	for _, path := range []string{"/", "/boom"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if seenComponent != applog.ComponentHTTP {
		t.Errorf("handler logger component = %q", seenComponent)
	}
	got := m.GetMetrics()
	if got.TotalRequests != 2 || got.FailedRequests != 1 {
		t.Errorf("metrics = %+v", got)
	}

	out := buf.String()
	for _, want := range []string{`"msg":"HTTP request started"`, `"msg":"HTTP request completed"`, `"client_ip":"10.0.0.9"`, `"request_id":`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestRequestIDOutsideChain(t *testing.T) {
	if id := RequestID(httptest.NewRequest(http.MethodGet, "/", nil)); id != "" {
		t.Errorf("RequestID = %q, want empty", id)
	}
}
