package http

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"pnl/internal/core"
)

const dateLayout = "2006-01-02"

// ValidationError reports a malformed or missing query parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReportParams are the parameters shared by every report endpoint.
type ReportParams struct {
	Company string
	From    time.Time
	To      time.Time
}

// PeriodParams select a single-period report.
type PeriodParams struct {
	ReportParams
	Dimension *core.Dimension
}

// GridParams select a period-indexed grid.
type GridParams struct {
	PeriodParams
	Grouping core.Grouping
}

// CompareParams select a dimension comparison.
type CompareParams struct {
	ReportParams
	Dimension string
	Values    []string
}

// ParseReportParams reads company, from and to. Dates are YYYY-MM-DD in UTC.
func ParseReportParams(q url.Values) (ReportParams, error) {
	var p ReportParams
	p.Company = sanitizeInput(q.Get("company"))
	if p.Company == "" {
		return p, invalid("company", "required")
	}
	var err error
	if p.From, err = parseDate(q, "from"); err != nil {
		return p, err
	}
	if p.To, err = parseDate(q, "to"); err != nil {
		return p, err
	}
	return p, nil
}

// ParsePeriodParams additionally accepts dimension=key=value.
func ParsePeriodParams(q url.Values) (PeriodParams, error) {
	base, err := ParseReportParams(q)
	if err != nil {
		return PeriodParams{}, err
	}
	dim, err := parseDimension(q.Get("dimension"))
	if err != nil {
		return PeriodParams{}, err
	}
	return PeriodParams{ReportParams: base, Dimension: dim}, nil
}

// ParseGridParams additionally reads grouping, defaulting to month.
func ParseGridParams(q url.Values) (GridParams, error) {
	base, err := ParsePeriodParams(q)
	if err != nil {
		return GridParams{}, err
	}
	g := core.Grouping(strings.ToLower(sanitizeInput(q.Get("grouping"))))
	if g == "" {
		g = core.GroupByMonth
	}
	if !g.IsValid() {
		return GridParams{}, invalid("grouping", "must be one of day, week, month")
	}
	return GridParams{PeriodParams: base, Grouping: g}, nil
}

// ParseCompareParams reads the dimension key and a comma-separated values
// list. Repeated values=... parameters are concatenated.
func ParseCompareParams(q url.Values) (CompareParams, error) {
	base, err := ParseReportParams(q)
	if err != nil {
		return CompareParams{}, err
	}
	p := CompareParams{ReportParams: base, Dimension: sanitizeInput(q.Get("dimension"))}
	if p.Dimension == "" {
		return p, invalid("dimension", "required")
	}
	for _, raw := range q["values"] {
		for _, v := range strings.Split(raw, ",") {
			if v = sanitizeInput(v); v != "" {
				p.Values = append(p.Values, v)
			}
		}
	}
	if len(p.Values) == 0 {
		return p, invalid("values", "at least one value required")
	}
	if len(p.Values) > core.MaxCompareValues {
		return p, invalid("values", fmt.Sprintf("at most %d values allowed", core.MaxCompareValues))
	}
	return p, nil
}

func parseDate(q url.Values, field string) (time.Time, error) {
	v := sanitizeInput(q.Get(field))
	if v == "" {
		return time.Time{}, invalid(field, "required")
	}
	t, err := time.ParseInLocation(dateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, invalid(field, "expected YYYY-MM-DD, got %q", v)
	}
	return t, nil
}

func parseDimension(raw string) (*core.Dimension, error) {
	raw = sanitizeInput(raw)
	if raw == "" {
		return nil, nil
	}
	key, value, ok := strings.Cut(raw, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return nil, invalid("dimension", "expected key=value, got %q", raw)
	}
	return &core.Dimension{Key: key, Value: value}, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
