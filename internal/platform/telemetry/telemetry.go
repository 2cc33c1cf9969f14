// Package telemetry exposes Prometheus metrics for the HTTP server, the
// billing derivation and claim-file generation.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Derivation outcomes.
const (
	ResultOK       = "ok"
	ResultDegraded = "degraded"
	ResultFailed   = "failed"
)

// Metrics holds every collector the service records. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
	derivations      *prometheus.CounterVec
	droppedCodes     *prometheus.CounterVec
	heuristicCodes   prometheus.Counter
	claimFiles       *prometheus.CounterVec
	claimReceipts    prometheus.Counter
	derivationPoints prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// so repeated construction does not collide.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
		derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_derivations_total",
			Help: "Billing derivations by outcome",
		}, []string{"result"}),
		droppedCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_dropped_codes_total",
			Help: "Fee codes dropped because neither the code nor its fallback exists",
		}, []string{"code"}),
		heuristicCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claim_heuristic_receipt_codes_total",
			Help: "Procedure lines written with a placeholder receipt code",
		}),
		claimFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claim_files_generated_total",
			Help: "Monthly claim files generated by format",
		}, []string{"format"}),
		claimReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claim_receipts_total",
			Help: "Patient receipts written into claim files",
		}),
		derivationPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "billing_derivation_points",
			Help:    "Total points per derived encounter",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3200},
		}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.derivations, m.droppedCodes, m.heuristicCodes,
		m.claimFiles, m.claimReceipts, m.derivationPoints,
	)
	return m
}

func (m *Metrics) ObserveDerivation(result string, totalPoints int, dropped []string) {
	if m == nil {
		return
	}
	m.derivations.WithLabelValues(result).Inc()
	if result != ResultFailed {
		m.derivationPoints.Observe(float64(totalPoints))
	}
	for _, code := range dropped {
		m.droppedCodes.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) ObserveClaimFile(format string, receipts, heuristic int) {
	if m == nil {
		return
	}
	m.claimFiles.WithLabelValues(format).Inc()
	m.claimReceipts.Add(float64(receipts))
	m.heuristicCodes.Add(float64(heuristic))
}

// Middleware records request count, latency and in-flight requests keyed by
// route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.httpInFlight.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			m.httpInFlight.Dec()
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
