package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"pnl/internal/core"
	"pnl/internal/formula"
	"pnl/internal/sources"
)

// Calculator computes the report rows of one company over one period,
// optionally narrowed by a dimension. It holds no per-call state and is
// safe for concurrent use.
type Calculator struct {
	categories sources.CategoryReader
	facts      sources.FactsProvider
}

func NewCalculator(categories sources.CategoryReader, facts sources.FactsProvider) *Calculator {
	return &Calculator{
		categories: categories,
		facts:      facts,
	}
}

// SupportsDimension reports whether the facts source honours dimensions.
func (c *Calculator) SupportsDimension() bool {
	return c.facts.SupportsDimension()
}

// Calculate evaluates every category for the period. Data problems (bad
// formulas, unknown codes, cycles, division by zero) never fail the call:
// the affected category is 0 and a warning is recorded. Errors are returned
// for an unsupported dimension, store failures and context cancellation.
func (c *Calculator) Calculate(ctx context.Context, company string, period core.Period, dim *core.Dimension) (*core.Report, error) {
	if company == "" {
		return nil, core.ErrEmptyCompany
	}
	if dim != nil && !c.facts.SupportsDimension() {
		return nil, fmt.Errorf("calculate %s: %w", dim, core.ErrDimensionUnsupported)
	}

	start := time.Now()
	defs, err := c.categories.Categories(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("load categories for %s: %w", company, err)
	}

	run := &calculation{
		ctx:    ctx,
		plan:   buildPlan(defs),
		facts:  c.facts,
		query:  core.FactQuery{Company: company, Period: period, Dimension: dim},
		values: make(map[string]float64, len(defs)),
	}
	if err := run.evaluate(); err != nil {
		return nil, err
	}

	report := &core.Report{
		Period:    period,
		Dimension: dim,
		Rows:      run.rows(),
		Warnings:  run.plan.warnings.List(),
	}

	slog.DebugContext(ctx, "Report calculated",
		"company", company,
		"period", period.ID,
		"rows", len(report.Rows),
		"warnings", len(report.Warnings),
		"duration_ms", time.Since(start).Milliseconds())

	return report, nil
}

// Diagnose runs the fact-independent checks over a company's definitions:
// duplicates, type/formula mismatches, syntax errors, unknown codes and
// cycles.
func (c *Calculator) Diagnose(ctx context.Context, company string) ([]string, error) {
	if company == "" {
		return nil, core.ErrEmptyCompany
	}
	defs, err := c.categories.Categories(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("load categories for %s: %w", company, err)
	}
	return Diagnose(defs), nil
}

// Diagnose returns the warnings a calculation over defs would report before
// any fact is read.
func Diagnose(defs []core.CategoryDefinition) []string {
	p := buildPlan(defs)
	return p.warnings.List()
}

// calculation is the state of a single Calculate call.
type calculation struct {
	ctx    context.Context
	plan   *plan
	facts  sources.FactsProvider
	query  core.FactQuery
	values map[string]float64
	leaves map[string]float64 // facts fetched ahead of their turn, by id
}

func (r *calculation) evaluate() error {
	for _, id := range r.plan.order.Nodes {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		d := r.plan.byID[id]
		v, err := r.value(d)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			r.plan.warnings.Add(fmt.Sprintf("category `%s` evaluated to a non-finite value; value is 0", d.Label()))
			v = 0
		}
		r.values[id] = v
	}
	return nil
}

func (r *calculation) value(d *core.CategoryDefinition) (float64, error) {
	switch d.Type {
	case core.LeafInput:
		return r.leaf(d)
	case core.Subtotal:
		if d.IsRollup() {
			return r.rollup(d), nil
		}
		return r.formula(d)
	case core.KPI:
		return r.formula(d)
	default:
		return 0, nil
	}
}

func (r *calculation) leaf(d *core.CategoryDefinition) (float64, error) {
	if d.Code == "" {
		return 0, nil
	}
	if v, ok := r.leaves[d.ID]; ok {
		return v, nil
	}
	q := r.query
	q.Code = d.Code
	v, err := r.facts.Value(r.ctx, q)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("fetch fact %s: %w", d.Code, err)
	}
	if r.leaves == nil {
		r.leaves = make(map[string]float64)
	}
	r.leaves[d.ID] = v
	return v, nil
}

func (r *calculation) rollup(d *core.CategoryDefinition) float64 {
	var sum float64
	for _, child := range r.plan.children[d.ID] {
		sum += r.values[child] * r.plan.byID[child].Weight()
	}
	return sum
}

func (r *calculation) formula(d *core.CategoryDefinition) (float64, error) {
	ast, ok := r.plan.asts[d.ID]
	if !ok {
		return 0, nil
	}
	ev := formula.Evaluator{
		Env: formula.EnvFunc(func(code string) (float64, error) {
			return r.lookup(code, d)
		}),
		Warn: func(msg string) {
			r.plan.warnings.Add(fmt.Sprintf("category `%s`: %s", d.Label(), msg))
		},
	}
	return ev.Eval(ast)
}

// lookup resolves a code referenced by the formula of category by.
func (r *calculation) lookup(code string, by *core.CategoryDefinition) (float64, error) {
	id, ok := r.plan.byCode[code]
	if !ok {
		r.plan.warnings.Add(unknownCodeWarning(code, by))
		return 0, nil
	}
	if v, ok := r.values[id]; ok {
		return v, nil
	}
	if dep := r.plan.byID[id]; dep.Type == core.LeafInput {
		return r.leaf(dep)
	}
	// Not yet computed and not a leaf: only reachable inside a cycle.
	return 0, nil
}

func (r *calculation) rows() []core.Row {
	rows := make([]core.Row, 0, len(r.plan.rows))
	for _, d := range r.plan.rows {
		v := r.values[d.ID]
		rows = append(rows, core.Row{
			ID:        d.ID,
			Code:      d.Code,
			Name:      d.Name,
			Level:     d.Level,
			Type:      d.Type,
			Format:    d.Format,
			RawValue:  v,
			Formatted: core.FormatValue(v, d.Format),
		})
	}
	return rows
}
