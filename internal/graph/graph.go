// Package graph provides the directed dependency graph used to order
// category evaluation. Edges point from a dependency to its dependent.
package graph

import "sort"

// Graph keeps nodes in insertion order so sorting is deterministic.
type Graph struct {
	nodes      []string
	index      map[string]int
	dependents map[string][]string
	edges      map[[2]string]struct{}
}

// Order is the result of Sort.
type Order struct {
	// Nodes lists every node exactly once, dependencies before dependents
	// whenever the graph allows it.
	Nodes []string
	// Cycles lists the strongly connected components that could not be
	// ordered, each id-sorted. Empty for an acyclic graph.
	Cycles [][]string
}

func New() *Graph {
	return &Graph{
		index:      make(map[string]int),
		dependents: make(map[string][]string),
		edges:      make(map[[2]string]struct{}),
	}
}

// AddNode registers id. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// AddEdge records that from must be evaluated before to. Both nodes must
// already exist; edges to unknown nodes and duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) bool {
	if !g.hasNode(from) || !g.hasNode(to) {
		return false
	}
	key := [2]string{from, to}
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = struct{}{}
	g.dependents[from] = append(g.dependents[from], to)
	return true
}

func (g *Graph) hasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Sort linearizes the graph with Kahn's algorithm. It never fails: nodes
// that cannot be ordered because of a cycle are appended component by
// component, in dependency order between components and id order inside
// each one, and the cyclic components are reported in Order.Cycles.
func (g *Graph) Sort() Order {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		for _, dep := range g.dependents[id] {
			indegree[dep]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, id := range g.nodes {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		done[id] = true
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return Order{Nodes: order}
	}

	var rest []string
	for _, id := range g.nodes {
		if !done[id] {
			rest = append(rest, id)
		}
	}
	components := g.components(rest)

	var cycles [][]string
	for _, comp := range components {
		order = append(order, comp...)
		if len(comp) > 1 || g.hasEdge(comp[0], comp[0]) {
			cycles = append(cycles, comp)
		}
	}
	return Order{Nodes: order, Cycles: cycles}
}

// components runs Tarjan's algorithm over the subgraph induced by ids and
// returns its strongly connected components with dependencies first.
func (g *Graph) components(ids []string) [][]string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	var (
		counter int
		stack   []string
		onStack = make(map[string]bool)
		index   = make(map[string]int)
		low     = make(map[string]int)
		out     [][]string
	)

	var connect func(v string)
	connect = func(v string) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		next := append([]string(nil), g.dependents[v]...)
		sort.Strings(next)
		for _, w := range next {
			if !inSet[w] {
				continue
			}
			if _, seen := index[w]; !seen {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] == index[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			out = append(out, comp)
		}
	}

	for _, id := range sorted {
		if _, seen := index[id]; !seen {
			connect(id)
		}
	}

	// Tarjan emits a component only after everything reachable from it,
	// i.e. dependents first; reverse to put dependencies first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (g *Graph) hasEdge(from, to string) bool {
	_, ok := g.edges[[2]string{from, to}]
	return ok
}
