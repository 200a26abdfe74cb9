package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/auth"
	"cloudnav/internal/domain"
)

type ctxKey int

const credentialKey ctxKey = iota

// credentialFrom returns the verified credential stored by requireAuth.
func credentialFrom(ctx context.Context) (domain.Credential, bool) {
	c, ok := ctx.Value(credentialKey).(domain.Credential)
	return c, ok
}

// authorized reports whether the request carries a valid credential.
func (s *Server) authorized(r *http.Request) bool {
	return s.verifier.Check(r.Header.Get(auth.HeaderName)) == nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pw := r.Header.Get(auth.HeaderName)
		if err := s.verifier.Check(pw); err != nil {
			s.log.WithFields(logrus.Fields{
				"path":       r.URL.Path,
				"request_id": middleware.GetReqID(r.Context()),
			}).Warn("Rejected request with missing or wrong password")
			writeError(w, http.StatusUnauthorized, auth.ErrUnauthorized.Error())
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey, domain.Credential(pw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Info("Request handled")
	})
}

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudnav_http_requests_total",
			Help: "Number of HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudnav_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
