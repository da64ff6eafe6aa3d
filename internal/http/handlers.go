package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pnl/internal/core"
	applog "pnl/internal/log"
	"pnl/internal/middleware/trace"
	"pnl/internal/services"
)

// DiagnosticsResponse lists the static problems of a company's definitions.
type DiagnosticsResponse struct {
	Company  string   `json:"company"`
	Warnings []string `json:"warnings"`
}

func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.reportContext(r)
	defer cancel()

	start := time.Now()
	report, err := s.calc.Calculate(ctx, p.Company, services.AggregatePeriod(p.From, p.To), p.Dimension)
	s.countReport(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.structured.LogReport(ctx, applog.OpCalculate, reportFields(p.ReportParams, dimensionKey(p.Dimension)).
		WithOutcome(len(report.Rows), len(report.Warnings), time.Since(start)))
	NewJSONResponse().Payload(report).Write(w)
}

func (s *Server) handleGridReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseGridParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.reportContext(r)
	defer cancel()

	start := time.Now()
	grid, err := s.grid.Build(ctx, p.Company, p.From, p.To, p.Grouping, p.Dimension)
	s.countReport(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fields := reportFields(p.ReportParams, dimensionKey(p.Dimension)).
		WithOutcome(len(grid.Rows), len(grid.Warnings), time.Since(start))
	fields[applog.FieldGrouping] = string(p.Grouping)
	s.structured.LogReport(ctx, applog.OpGrid, fields)
	NewJSONResponse().Payload(grid).Write(w)
}

func (s *Server) handleCompareReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseCompareParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.reportContext(r)
	defer cancel()

	start := time.Now()
	cmp, err := s.compare.Build(ctx, p.Company, p.From, p.To, p.Values, p.Dimension)
	s.countReport(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.structured.LogReport(ctx, applog.OpCompare, reportFields(p.ReportParams, p.Dimension).
		WithOutcome(len(cmp.Rows), len(cmp.Warnings), time.Since(start)))
	NewJSONResponse().Payload(cmp).Write(w)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	company := sanitizeInput(r.URL.Query().Get("company"))
	if company == "" {
		s.writeError(w, r, invalid("company", "required"))
		return
	}

	warnings, err := s.calc.Diagnose(r.Context(), company)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Payload(DiagnosticsResponse{Company: company, Warnings: warnings}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady checks the data backend within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.rateLimiter.ActiveClients()},
	}

	backend := "ok"
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			backend = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				applog.FieldError, err)
		}
	}
	checks["backend"] = backend

	if s.cacheStats != nil {
		st := s.cacheStats()
		checks["facts_cache"] = map[string]any{"hits": st.Hits, "misses": st.Misses}
	}

	NewJSONResponse().Status(httpStatus).Payload(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// writeError maps an error to a status code. Bad input and unsupported
// dimensions are the caller's fault; everything else is ours.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		s.withRequestID(r, NewJSONResponse().Status(http.StatusBadRequest).
			Payload(ErrorBody{Error: verr.Message, Field: verr.Field})).Write(w)
	case errors.Is(err, core.ErrDimensionUnsupported),
		errors.Is(err, core.ErrInvalidGrouping),
		errors.Is(err, core.ErrEmptyCompany),
		errors.Is(err, core.ErrRangeTooLarge):
		s.withRequestID(r, BadRequestError(err.Error())).Write(w)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Report aborted",
			applog.FieldPath, r.URL.Path, applog.FieldError, err)
		s.withRequestID(r, ServiceUnavailableError("report timed out")).Write(w)
	default:
		s.structured.LogError(r.Context(), "Report failed", err, r.URL.Path,
			applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		s.withRequestID(r, InternalServerError("internal error")).Write(w)
	}
}

// withRequestID stamps the request id into an ErrorBody payload.
func (s *Server) withRequestID(r *http.Request, b *JSONResponseBuilder) *JSONResponseBuilder {
	if body, ok := b.payload.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(r.Context())
		b.payload = body
	}
	return b
}

func reportFields(p ReportParams, dimension string) applog.LogFields {
	return applog.NewFields().WithReport(p.Company, p.From, p.To).WithDimension(dimension)
}

func dimensionKey(d *core.Dimension) string {
	if d == nil {
		return ""
	}
	return d.Key
}
