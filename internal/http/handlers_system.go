package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	applog "expenses/internal/log"
)

// readyTimeout bounds the store ping of the readiness probe.
const readyTimeout = 2 * time.Second

type healthJSON struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

type readyJSON struct {
	Status       string `json:"status"`
	CacheEntries *int   `json:"cacheEntries,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	NewJSONResponse().Body(healthJSON{
		Status:    "OK",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(s.started).Truncate(time.Second).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.LogError(ctx, "Readiness check failed", err, applog.ErrorTypeDatabase, applog.OpRead, nil)
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Body(readyJSON{Status: "unavailable", Error: "store unreachable"}).
			Write(w)
		return
	}

	body := readyJSON{Status: "ready"}
	if s.deps.Cache != nil {
		n := s.deps.Cache.Size(ctx)
		body.CacheEntries = &n
	}
	NewJSONResponse().Body(body).Write(w)
}

// handleMetrics exposes the middleware counters in the Prometheus text
// format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()

	var b strings.Builder
	metric := func(name, help string, value any) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n", name, help, name, name, value)
	}
	metric("expenses_http_requests_total", "Requests served.", req.TotalRequests)
	metric("expenses_http_requests_failed_total", "Requests answered with a 4xx or 5xx status.", req.FailedRequests)
	metric("expenses_http_response_time_avg_seconds", "Average response time.", req.AverageResponseTime.Seconds())
	metric("expenses_rate_limit_hits_total", "Requests rejected by the rate limiter.", rl.TotalHits)
	metric("expenses_rate_limit_clients", "Clients tracked by the rate limiter.", rl.ClientCount)
	metric("expenses_suspicious_requests_total", "Requests flagged by the detector.", sec.SuspiciousRequests)
	if s.deps.Cache != nil {
		metric("expenses_suggest_cache_entries", "Cached suggestion snapshots.", s.deps.Cache.Size(r.Context()))
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}
