package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric(w, "reports_served_total", "counter", "Reports computed successfully", atomic.LoadInt64(&s.appMetrics.reportsServed))
	metric(w, "report_errors_total", "counter", "Report requests that failed", atomic.LoadInt64(&s.appMetrics.reportErrors))
	if s.cacheStats != nil {
		st := s.cacheStats()
		metric(w, "facts_cache_hits_total", "counter", "Facts cache hits", st.Hits)
		metric(w, "facts_cache_misses_total", "counter", "Facts cache misses", st.Misses)
		metric(w, "facts_cache_evictions_total", "counter", "Facts cache evictions", st.Evictions)
	}
	metric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func metric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
