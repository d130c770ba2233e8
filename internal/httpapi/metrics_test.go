package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/teapot", http.MethodGet, "418")); v != 1 {
		t.Fatalf("requests_total{/teapot,GET,418} = %v, want 1", v)
	}
}

func TestMetricsMiddlewareDefaultsStatusOK(t *testing.T) {
	// A handler that never writes must still be counted as a 200, not a 0.
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/silent", nil))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/silent", http.MethodGet, "200")); v != 1 {
		t.Fatalf("requests_total{/silent,GET,200} = %v, want 1", v)
	}
}

// hijackableRecorder gives the recorder the Hijacker surface a live HTTP/1
// connection has.
type hijackableRecorder struct{ *httptest.ResponseRecorder }

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errors.New("recorded connection cannot be hijacked")
}

func TestMetricsMiddlewareKeepsHijacker(t *testing.T) {
	// Connection upgrades (the /events websocket) hijack the response writer;
	// the instrumentation wrapper must not hide that capability.
	sawHijacker := make(chan bool, 1)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Hijacker)
		sawHijacker <- ok
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))
	rec := &hijackableRecorder{httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if !<-sawHijacker {
		t.Fatalf("metrics wrapper hides http.Hijacker from handlers")
	}
}
