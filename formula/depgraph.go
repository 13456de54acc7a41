package formula

import "sort"

// Graph tracks, per formula cell, the set of cells it references and the
// reverse set (dependents), and computes recalculation order.
type Graph struct {
	deps map[string]map[string]struct{} // cell -> cells it depends on
	rdep map[string]map[string]struct{} // cell -> cells that depend on it
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		deps: make(map[string]map[string]struct{}),
		rdep: make(map[string]map[string]struct{}),
	}
}

// AddFormula records that cell depends on refs, replacing any prior entry
// for cell.
func (g *Graph) AddFormula(cell string, refs []string) {
	g.RemoveFormula(cell)
	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref == cell {
			continue
		}
		set[ref] = struct{}{}
		if g.rdep[ref] == nil {
			g.rdep[ref] = make(map[string]struct{})
		}
		g.rdep[ref][cell] = struct{}{}
	}
	g.deps[cell] = set
}

// RemoveFormula deletes cell's dependency edges, both forward and reverse.
func (g *Graph) RemoveFormula(cell string) {
	for ref := range g.deps[cell] {
		if rs, ok := g.rdep[ref]; ok {
			delete(rs, cell)
			if len(rs) == 0 {
				delete(g.rdep, ref)
			}
		}
	}
	delete(g.deps, cell)
}

// DirectDependents returns the cells whose formulas directly reference cell.
func (g *Graph) DirectDependents(cell string) []string {
	var out []string
	for c := range g.rdep[cell] {
		out = append(out, c)
	}
	return out
}

// DirectDependencies returns the cells cell's formula directly references.
func (g *Graph) DirectDependencies(cell string) []string {
	var out []string
	for c := range g.deps[cell] {
		out = append(out, c)
	}
	return out
}

// RecalculationOrder computes the transitive closure of dependents reachable
// from changedCells by BFS, then topologically sorts that closure via
// three-colour DFS; nodes outside the reachable set are not sorted.
func (g *Graph) RecalculationOrder(changedCells []string) ([]string, error) {
	reachable := make(map[string]struct{})
	queue := append([]string(nil), changedCells...)
	for _, c := range changedCells {
		reachable[c] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.rdep[cur] {
			if _, seen := reachable[dep]; seen {
				continue
			}
			reachable[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(reachable))
	var order []string
	var visit func(cell string) error
	visit = func(cell string) error {
		switch color[cell] {
		case black:
			return nil
		case gray:
			return &CircularReferenceError{Cell: cell}
		}
		color[cell] = gray
		var deps []string
		for dep := range g.deps[cell] {
			if _, ok := reachable[dep]; ok {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[cell] = black
		order = append(order, cell)
		return nil
	}

	// Deterministic visitation order: iterate changedCells first (stable
	// input order), then any remaining reachable nodes.
	visited := make(map[string]struct{})
	for _, c := range changedCells {
		if _, ok := reachable[c]; !ok {
			continue
		}
		if err := visit(c); err != nil {
			return nil, err
		}
		visited[c] = struct{}{}
	}
	var remaining []string
	for cell := range reachable {
		if _, done := visited[cell]; !done {
			remaining = append(remaining, cell)
		}
	}
	sort.Strings(remaining)
	for _, cell := range remaining {
		if err := visit(cell); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// HasCircularReference reports whether RecalculationOrder finds a cycle when
// started from any single cell in cells. Only that cell and its transitive
// dependents are searched, so a cycle among the dependents counts even when
// the cell itself is not part of it.
func (g *Graph) HasCircularReference(cells []string) bool {
	for _, c := range cells {
		if _, err := g.RecalculationOrder([]string{c}); err != nil {
			return true
		}
	}
	return false
}
