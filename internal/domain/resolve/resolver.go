package resolve

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/profilecore/internal/domain/metadata"
)

// Spec is a candidate that can satisfy a Requirement: a named, versioned
// profile the resolver can activate.
type Spec struct {
	Name    string
	Version string
	// Pinned optionally carries the pinned requirement a candidate came
	// from. Resolve neither sets nor reads it.
	Pinned *metadata.Requirement
}

func (s Spec) String() string {
	return fmt.Sprintf("%s@%s", s.Name, s.Version)
}

// SpecificationProvider is the oracle the resolver queries for candidates
// and transitive dependencies — in this system, the Vendor Index (C6).
//
// SearchFor and DependenciesFor must be pure: calling either with the
// same inputs must return equal outputs, since the resolver relies on
// this for correctness (spec.md §4.7).
type SpecificationProvider interface {
	// SearchFor returns candidates satisfying req, in ascending version
	// order (the resolver inspects from the end, i.e. newest first).
	SearchFor(req metadata.Requirement) ([]Spec, error)
	// DependenciesFor returns the declared requirements of spec.
	DependenciesFor(spec Spec) ([]metadata.Requirement, error)
}

// VersionConflict is returned when a requirement has no candidate left
// that satisfies it, or when an already-activated version does not
// satisfy a later requirement's constraint.
type VersionConflict struct {
	Name      string
	Conflicts []ConflictEntry
}

// ConflictEntry names one requirement that contributed to a conflict.
type ConflictEntry struct {
	RequiredBy string
	Constraint string
}

func (e *VersionConflict) Error() string {
	return fmt.Sprintf("version conflict for %q: %d incompatible requirement(s)", e.Name, len(e.Conflicts))
}

// CyclicDependencyError reports a cycle in the dependency graph, naming
// every profile on the cycle in sorted order (spec.md §4.7/§8 scenario 6).
type CyclicDependencyError struct {
	Names []string
}

func (e *CyclicDependencyError) Error() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	return fmt.Sprintf("cyclic dependency detected among: %v", names)
}

// Graph is a DAG whose vertices are resolved Specs and whose edges
// represent "depends on" (spec.md §3).
type Graph struct {
	nodes map[string]Spec
	edges map[string][]string
	order []string // insertion order, used as a stable base for TopologicalOrder
}

func newGraph() *Graph {
	return &Graph{nodes: map[string]Spec{}, edges: map[string][]string{}}
}

// Specs returns every resolved Spec, keyed by name.
func (g *Graph) Specs() map[string]Spec {
	out := make(map[string]Spec, len(g.nodes))
	for k, v := range g.nodes {
		out[k] = v
	}
	return out
}

// TopologicalOrder returns the resolver's stable install order: a
// topological sort of the DAG, dependencies before dependents.
func (g *Graph) TopologicalOrder() []string {
	state := map[string]int{} // 0 unvisited, 1 visiting, 2 done
	var out []string
	var visit func(string)
	visit = func(n string) {
		if state[n] == 2 {
			return
		}
		state[n] = 1
		for _, dep := range g.edges[n] {
			if state[dep] != 2 {
				visit(dep)
			}
		}
		state[n] = 2
		out = append(out, n)
	}
	for _, n := range g.order {
		if state[n] == 0 {
			visit(n)
		}
	}
	return out
}

// decision is one entry on the resolver's explicit activation stack: a
// requirement, the candidates considered for it (newest-first), and how
// far into that list the search has progressed.
type decision struct {
	req        metadata.Requirement
	requiredBy string
	candidates []Spec // newest first
	tried      int
}

// Resolve resolves roots and their transitive dependencies against
// provider, returning the resolved Graph or a *VersionConflict /
// *CyclicDependencyError. Each requirement takes the newest candidate
// that satisfies its constraint; a choice is never revisited, so a
// conflict found later is reported rather than retried with an older
// candidate.
func Resolve(roots []metadata.Requirement, provider SpecificationProvider) (*Graph, error) {
	g := newGraph()
	activated := map[string]Spec{} // name -> chosen spec
	var stack []*decision

	// pendingEdges records the edge (from,to) to add once both ends are
	// activated; "from" == "" means a root requirement.
	type pendingEdge struct{ from, to string }
	var edgeQueue []pendingEdge
	for _, r := range roots {
		edgeQueue = append(edgeQueue, pendingEdge{from: "", to: r.Name})
	}

	seen := map[string]bool{} // requirement names already queued onto frontier/stack

	pushRequirement := func(req metadata.Requirement, requiredBy string) error {
		if existing, ok := activated[req.Name]; ok {
			if !Satisfies(existing.Version, req.Constraint) {
				return &VersionConflict{
					Name: req.Name,
					Conflicts: []ConflictEntry{
						{RequiredBy: requiredBy, Constraint: req.Constraint},
					},
				}
			}
			edgeQueue = append(edgeQueue, pendingEdge{from: requiredBy, to: req.Name})
			return nil
		}
		if seen[req.Name] {
			edgeQueue = append(edgeQueue, pendingEdge{from: requiredBy, to: req.Name})
			return nil
		}
		seen[req.Name] = true
		candidates, err := provider.SearchFor(req)
		if err != nil {
			return err
		}
		sortCandidatesAscending(candidates)
		stack = append(stack, &decision{req: req, requiredBy: requiredBy, candidates: candidates})
		edgeQueue = append(edgeQueue, pendingEdge{from: requiredBy, to: req.Name})
		return nil
	}

	for _, r := range roots {
		if err := pushRequirement(r, "inspec.yml"); err != nil {
			return nil, err
		}
	}

	for len(stack) > 0 {
		sortDecisions(stack, activated)
		d := stack[len(stack)-1]

		if d.tried >= len(d.candidates) {
			// Exhausted candidates for this requirement: report a conflict.
			return nil, &VersionConflict{
				Name: d.req.Name,
				Conflicts: []ConflictEntry{
					{RequiredBy: d.requiredBy, Constraint: d.req.Constraint},
				},
			}
		}

		candidate := d.candidates[len(d.candidates)-1-d.tried]
		d.tried++

		if !Satisfies(candidate.Version, d.req.Constraint) {
			continue
		}

		activated[d.req.Name] = candidate
		stack = stack[:len(stack)-1]

		deps, err := provider.DependenciesFor(candidate)
		if err != nil {
			delete(activated, d.req.Name)
			return nil, err
		}

		cycleName, hasCycle := detectCycle(candidate.Name, deps, activated, edgeQueue)
		if hasCycle {
			delete(activated, d.req.Name)
			sort.Strings(cycleName)
			return nil, &CyclicDependencyError{Names: cycleName}
		}

		for _, dep := range deps {
			if err := pushRequirement(dep, candidate.Name); err != nil {
				delete(activated, d.req.Name)
				return nil, err
			}
		}
	}

	for name, spec := range activated {
		g.nodes[name] = spec
		g.order = append(g.order, name)
	}
	sort.Strings(g.order) // deterministic base order before topo-sort
	for _, e := range edgeQueue {
		if e.from == "" {
			continue
		}
		if _, ok := activated[e.from]; !ok {
			continue
		}
		if _, ok := activated[e.to]; !ok {
			continue
		}
		g.edges[e.from] = append(g.edges[e.from], e.to)
	}
	for k := range g.edges {
		sort.Strings(g.edges[k])
	}

	return g, nil
}

// detectCycle walks the (so-far-accumulated) edges plus the proposed new
// deps of `name` to see whether activating name's dependencies would
// close a cycle back to name itself.
func detectCycle(name string, deps []metadata.Requirement, activated map[string]Spec, edges []struct{ from, to string }) ([]string, bool) {
	adj := map[string][]string{}
	for _, e := range edges {
		if e.from != "" {
			adj[e.from] = append(adj[e.from], e.to)
		}
	}
	for _, d := range deps {
		adj[name] = append(adj[name], d.Name)
	}

	visiting := map[string]bool{}
	var path []string
	var walk func(n string) []string
	walk = func(n string) []string {
		if n == name && len(path) > 0 {
			return append(append([]string(nil), path...), n)
		}
		if visiting[n] {
			return nil
		}
		visiting[n] = true
		path = append(path, n)
		for _, next := range adj[n] {
			if _, ok := activated[next]; !ok && next != name {
				continue
			}
			if cyc := walk(next); cyc != nil {
				return cyc
			}
		}
		path = path[:len(path)-1]
		visiting[n] = false
		return nil
	}

	for _, next := range adj[name] {
		if cyc := walk(next); cyc != nil {
			return cyc, true
		}
	}
	return nil, false
}

func sortCandidatesAscending(specs []Spec) {
	sort.Slice(specs, func(i, j int) bool {
		return Compare(specs[i].Version, specs[j].Version) < 0
	})
}

// sortDecisions orders the decision stack by spec.md §4.7's
// sort_dependencies tuple: (already-activated? 0:1, has-conflict? 0:1,
// candidate-count ascending) — placed so the *last* element (the one the
// loop pops next) is the highest priority.
func sortDecisions(stack []*decision, activated map[string]Spec) {
	priority := func(d *decision) (int, int, int) {
		activatedFlag := 1
		if _, ok := activated[d.req.Name]; ok {
			activatedFlag = 0
		}
		conflictFlag := 0
		if existing, ok := activated[d.req.Name]; ok && !Satisfies(existing.Version, d.req.Constraint) {
			conflictFlag = 0
		} else {
			conflictFlag = 1
		}
		return activatedFlag, conflictFlag, len(d.candidates)
	}
	sort.SliceStable(stack, func(i, j int) bool {
		pi1, pi2, pi3 := priority(stack[i])
		pj1, pj2, pj3 := priority(stack[j])
		if pi1 != pj1 {
			return pi1 > pj1 // higher priority (lower tuple) goes last (popped first)
		}
		if pi2 != pj2 {
			return pi2 > pj2
		}
		return pi3 > pj3
	})
}
