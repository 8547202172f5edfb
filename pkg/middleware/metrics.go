// Package middleware holds the HTTP middleware shared by the API: request
// IDs, Prometheus instrumentation and request deadlines.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Metrics counts and times requests per matched route. It must wrap the
// ServeMux directly so the matched pattern is visible after dispatch.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		observed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
				m.HTTPRequestDuration.WithLabelValues(r.Method, route(r)).Observe(seconds)
			}))
			next.ServeHTTP(rec, r)
			timer.ObserveDuration()
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route(r), strconv.Itoa(rec.code())).Inc()
		})
		return promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight, observed)
	}
}

// route labels by ServeMux pattern rather than raw path, keeping document
// IDs out of the label set.
func route(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
