package graph

import (
	"reflect"
	"testing"
)

func build(nodes []string, edges [][2]string) *Graph {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func positions(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}

func TestSortRespectsEdges(t *testing.T) {
	nodes := []string{"gp", "rev", "cogs", "opex", "ebit", "rent", "salaries"}
	edges := [][2]string{
		{"rev", "gp"}, {"cogs", "gp"},
		{"rent", "opex"}, {"salaries", "opex"},
		{"gp", "ebit"}, {"opex", "ebit"},
	}
	g := build(nodes, edges)

	got := g.Sort()
	if len(got.Cycles) != 0 {
		t.Fatalf("unexpected cycles: %v", got.Cycles)
	}
	if len(got.Nodes) != len(nodes) {
		t.Fatalf("got %d nodes, want %d", len(got.Nodes), len(nodes))
	}
	pos := positions(got.Nodes)
	for _, e := range edges {
		if pos[e[0]] >= pos[e[1]] {
			t.Errorf("edge %s -> %s violated in %v", e[0], e[1], got.Nodes)
		}
	}
}

func TestSortIsDeterministic(t *testing.T) {
	g := build([]string{"c", "a", "b"}, [][2]string{{"a", "c"}})
	first := g.Sort()
	for i := 0; i < 10; i++ {
		if again := g.Sort(); !reflect.DeepEqual(first, again) {
			t.Fatalf("sort not deterministic: %v vs %v", first, again)
		}
	}
	// insertion order is kept among independent nodes
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(first.Nodes, want) {
		t.Fatalf("got %v, want %v", first.Nodes, want)
	}
}

func TestSortToleratesCycles(t *testing.T) {
	// x <-> y form a cycle; z depends on y; w is independent; v feeds x.
	g := build(
		[]string{"z", "y", "x", "w", "v"},
		[][2]string{{"x", "y"}, {"y", "x"}, {"y", "z"}, {"v", "x"}},
	)

	got := g.Sort()
	if want := [][]string{{"x", "y"}}; !reflect.DeepEqual(got.Cycles, want) {
		t.Fatalf("cycles = %v, want %v", got.Cycles, want)
	}
	if want := []string{"w", "v", "x", "y", "z"}; !reflect.DeepEqual(got.Nodes, want) {
		t.Fatalf("order = %v, want %v", got.Nodes, want)
	}
}

func TestSortSelfLoop(t *testing.T) {
	g := build([]string{"a", "b"}, [][2]string{{"a", "a"}, {"a", "b"}})
	got := g.Sort()
	if want := [][]string{{"a"}}; !reflect.DeepEqual(got.Cycles, want) {
		t.Fatalf("cycles = %v, want %v", got.Cycles, want)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(got.Nodes, want) {
		t.Fatalf("order = %v, want %v", got.Nodes, want)
	}
}

func TestSortSeparateCycles(t *testing.T) {
	g := build(
		[]string{"d", "c", "b", "a"},
		[][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}, {"b", "c"}},
	)
	got := g.Sort()
	if want := [][]string{{"a", "b"}, {"c", "d"}}; !reflect.DeepEqual(got.Cycles, want) {
		t.Fatalf("cycles = %v, want %v", got.Cycles, want)
	}
	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got.Nodes, want) {
		t.Fatalf("order = %v, want %v", got.Nodes, want)
	}
}

func TestAddEdgeIgnoresUnknownAndDuplicates(t *testing.T) {
	g := build([]string{"a", "b"}, nil)
	if g.AddEdge("a", "missing") {
		t.Fatalf("edge to unknown node should be ignored")
	}
	if !g.AddEdge("a", "b") {
		t.Fatalf("expected edge to be added")
	}
	if g.AddEdge("a", "b") {
		t.Fatalf("duplicate edge should be ignored")
	}
	if deps := g.dependents["a"]; !reflect.DeepEqual(deps, []string{"b"}) {
		t.Fatalf("dependents = %v", deps)
	}
	g.AddNode("a")
	if len(g.nodes) != 2 {
		t.Fatalf("duplicate node changed length: %d", len(g.nodes))
	}
}
