package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "expenses/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.1.2.3" })

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q, want generated req_ prefix", seenID)
	}
	if got := rr.Header().Get(HeaderRequestID); got != seenID {
		t.Errorf("response header = %q, want %q", got, seenID)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "upstream-42")
	h.ServeHTTP(rr, req)
	if seenID != "upstream-42" {
		t.Errorf("incoming request id not reused, got %q", seenID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seenID == "bad id with spaces" {
		t.Error("invalid incoming request id should be replaced")
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", metrics.TotalRequests)
	}
	if metrics.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", metrics.ServerErrors)
	}

	out := buf.String()
	for _, want := range []string{`"msg":"HTTP request completed"`, `"client_ip":"10.1.2.3"`, `"request_id":"upstream-42"`, `"level":"ERROR"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s", want)
		}
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
