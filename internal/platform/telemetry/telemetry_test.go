package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDerivation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDerivation(ResultOK, 330, nil)
	m.ObserveDerivation(ResultDegraded, 120, []string{"M-TEK", "M-TEK"})
	m.ObserveDerivation(ResultFailed, 0, nil)

	if got := testutil.ToFloat64(m.derivations.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("expected 1 ok derivation, got %v", got)
	}
	if got := testutil.ToFloat64(m.droppedCodes.WithLabelValues("M-TEK")); got != 2 {
		t.Errorf("expected 2 dropped M-TEK, got %v", got)
	}
}

func TestObserveClaimFile(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveClaimFile("uke", 3, 1)
	m.ObserveClaimFile("json", 3, 0)

	if got := testutil.ToFloat64(m.claimReceipts); got != 6 {
		t.Errorf("expected 6 receipts, got %v", got)
	}
	if got := testutil.ToFloat64(m.heuristicCodes); got != 1 {
		t.Errorf("expected 1 heuristic code, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDerivation(ResultOK, 10, []string{"X"})
	m.ObserveClaimFile("uke", 1, 1)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/billings/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billings/abc", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/billings/:id", "204")); got != 1 {
		t.Errorf("expected 1 request on route pattern, got %v", got)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("expected http_requests_total in exposition")
	}
}
