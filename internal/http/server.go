package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pnl/internal/cache"
	applog "pnl/internal/log"
	"pnl/internal/middleware/ratelimit"
	"pnl/internal/middleware/security"
	"pnl/internal/middleware/trace"
	"pnl/internal/services"
)

// Options wires the report services into the HTTP server.
type Options struct {
	Addr       string
	Calculator *services.Calculator
	Grid       *services.GridBuilder
	Compare    *services.CompareBuilder
	// Ready checks the data backend; nil means always ready.
	Ready  func(context.Context) error
	Logger *applog.Logger
	// RateLimitRPM bounds requests per client per minute on /api routes.
	RateLimitRPM int
	// RequestTimeout bounds each report computation; zero disables it.
	RequestTimeout time.Duration
	// CacheStats exposes the facts cache counters on /metrics when set.
	CacheStats func() cache.Stats
}

type Server struct {
	http.Server
	calc    *services.Calculator
	grid    *services.GridBuilder
	compare *services.CompareBuilder
	ready   func(context.Context) error
	timeout time.Duration

	logger           *applog.Logger
	structured       *applog.StructuredLogger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheStats       func() cache.Stats
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime        time.Time
	reportsServed int64
	reportErrors  int64
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		calc:             opts.Calculator,
		grid:             opts.Grid,
		compare:          opts.Compare,
		ready:            opts.Ready,
		timeout:          opts.RequestTimeout,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger.WithComponent(applog.ComponentReport)),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		securityDetector: security.NewDetector(),
		cacheStats:       opts.CacheStats,
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		s.withRequestID(r, TooManyRequestsError()).Write(w)
	})

	api := http.NewServeMux()
	api.HandleFunc("GET /api/reports/period", s.handlePeriodReport)
	api.HandleFunc("GET /api/reports/grid", s.handleGridReport)
	api.HandleFunc("GET /api/reports/compare", s.handleCompareReport)
	api.HandleFunc("GET /api/categories/diagnostics", s.handleDiagnostics)

	mux := http.NewServeMux()
	mux.Handle("/api/", limit(api))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.detectSuspicious(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// detectSuspicious logs probing requests and lets them through; the API is
// read-only.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.securityDetector.Inspect(r); reason != "" {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldPath, r.URL.Path,
				"reason", reason)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the rate limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) reportContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) countReport(err error) {
	if err != nil {
		atomic.AddInt64(&s.appMetrics.reportErrors, 1)
		return
	}
	atomic.AddInt64(&s.appMetrics.reportsServed, 1)
}
