package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
)

func TestMiddleware_LogsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &buf
	logger := applog.New(cfg)

	var sawRequestLogger bool
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(NewMiddleware(logger, func(*http.Request) string { return "203.0.113.9" }).Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		sawRequestLogger = applog.FromContext(r.Context()).Component() == applog.ComponentApp
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status=%d", rr.Code)
	}
	if !sawRequestLogger {
		t.Errorf("handler did not get the request logger")
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v", got)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "client_ip=203.0.113.9", "request_id=", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestMiddleware_DefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &buf

	h := NewMiddleware(applog.New(cfg), nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plain", nil))

	if !strings.Contains(buf.String(), "status_code=200") {
		t.Errorf("log = %s", buf.String())
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := RoutePattern(r); got != "unmatched" {
		t.Errorf("RoutePattern = %q", got)
	}
}
