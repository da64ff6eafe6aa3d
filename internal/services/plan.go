package services

import (
	"cmp"
	"fmt"
	"slices"

	"pnl/internal/core"
	"pnl/internal/formula"
	"pnl/internal/graph"
)

// plan is the call-scoped, fact-independent view of a company's
// definitions: lookup maps, parsed formulas and the evaluation order.
// It is rebuilt on every calculation and never shared between calls.
type plan struct {
	rows     []*core.CategoryDefinition // tree order
	byID     map[string]*core.CategoryDefinition
	byCode   map[string]string // code -> id
	children map[string][]string
	asts     map[string]formula.Node // only valid formula-bearing categories
	order    graph.Order
	cyclic   map[string]bool
	warnings core.Warnings
}

func buildPlan(defs []core.CategoryDefinition) *plan {
	p := &plan{
		byID:     make(map[string]*core.CategoryDefinition, len(defs)),
		byCode:   make(map[string]string, len(defs)),
		children: make(map[string][]string),
		asts:     make(map[string]formula.Node),
		cyclic:   make(map[string]bool),
	}

	unique := make([]*core.CategoryDefinition, 0, len(defs))
	for i := range defs {
		d := &defs[i]
		if _, dup := p.byID[d.ID]; dup {
			p.warnings.Add(fmt.Sprintf("duplicate category id `%s` ignored", d.ID))
			continue
		}
		p.byID[d.ID] = d
		unique = append(unique, d)
	}
	for _, d := range unique {
		if d.Code == "" {
			continue
		}
		if first, dup := p.byCode[d.Code]; dup {
			p.warnings.Add(fmt.Sprintf("duplicate code `%s` on category `%s` ignored; already used by `%s`", d.Code, d.ID, first))
			continue
		}
		p.byCode[d.Code] = d.ID
	}

	p.rows = treeOrder(unique, p.byID)
	for _, d := range p.rows {
		if d.ParentID != "" {
			if _, ok := p.byID[d.ParentID]; ok {
				p.children[d.ParentID] = append(p.children[d.ParentID], d.ID)
			}
		}
	}

	p.check()
	p.order = p.dependencyGraph().Sort()
	for _, cycle := range p.order.Cycles {
		for _, id := range cycle {
			p.cyclic[id] = true
			p.warnings.Add(fmt.Sprintf("category `%s` is part of a dependency cycle", p.byID[id].Label()))
		}
	}
	return p
}

// check validates each definition and parses its formula once.
func (p *plan) check() {
	for _, d := range p.rows {
		switch d.Type {
		case core.LeafInput:
			if d.HasFormula() {
				p.warnings.Add(fmt.Sprintf("leaf category `%s` has a formula; formula ignored", d.Label()))
			}
			if d.Code == "" {
				p.warnings.Add(fmt.Sprintf("leaf category `%s` has no code; value is 0", d.ID))
			}
			continue
		case core.KPI:
			if !d.HasFormula() {
				p.warnings.Add(fmt.Sprintf("KPI category `%s` has no formula; value is 0", d.Label()))
				continue
			}
		case core.Subtotal:
			if !d.HasFormula() {
				continue
			}
		default:
			p.warnings.Add(fmt.Sprintf("category `%s` has unknown type `%s`; value is 0", d.Label(), d.Type))
			continue
		}

		ast, err := formula.Parse(d.Formula)
		if err != nil {
			p.warnings.Add(fmt.Sprintf("invalid formula in category `%s`: %v", d.Label(), err))
			continue
		}
		p.asts[d.ID] = ast
		for _, code := range formula.Dependencies(ast) {
			if _, ok := p.byCode[code]; !ok {
				p.warnings.Add(unknownCodeWarning(code, d))
			}
		}
	}
}

func (p *plan) dependencyGraph() *graph.Graph {
	g := graph.New()
	for _, d := range p.rows {
		g.AddNode(d.ID)
	}
	for _, d := range p.rows {
		if d.IsRollup() {
			for _, child := range p.children[d.ID] {
				g.AddEdge(child, d.ID)
			}
		}
		if ast, ok := p.asts[d.ID]; ok {
			for _, code := range formula.Dependencies(ast) {
				if dep, ok := p.byCode[code]; ok {
					g.AddEdge(dep, d.ID)
				}
			}
		}
	}
	return g
}

func unknownCodeWarning(code string, by *core.CategoryDefinition) string {
	return fmt.Sprintf("unknown code `%s` referenced by category `%s`", code, by.Label())
}

// treeOrder walks the parent/child relation depth first, roots and siblings
// ordered by SortOrder then id. Categories unreachable from a root (orphans,
// parent cycles) are appended in the same manner.
func treeOrder(defs []*core.CategoryDefinition, byID map[string]*core.CategoryDefinition) []*core.CategoryDefinition {
	sorted := slices.Clone(defs)
	slices.SortStableFunc(sorted, func(a, b *core.CategoryDefinition) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})

	kids := make(map[string][]*core.CategoryDefinition)
	for _, d := range sorted {
		if d.ParentID != "" {
			kids[d.ParentID] = append(kids[d.ParentID], d)
		}
	}

	out := make([]*core.CategoryDefinition, 0, len(defs))
	visited := make(map[string]bool, len(defs))
	var walk func(d *core.CategoryDefinition)
	walk = func(d *core.CategoryDefinition) {
		if visited[d.ID] {
			return
		}
		visited[d.ID] = true
		out = append(out, d)
		for _, k := range kids[d.ID] {
			walk(k)
		}
	}

	for _, d := range sorted {
		if d.ParentID == "" {
			walk(d)
		}
	}
	for _, d := range sorted {
		if _, ok := byID[d.ParentID]; !ok {
			walk(d)
		}
	}
	for _, d := range sorted {
		walk(d)
	}
	return out
}
