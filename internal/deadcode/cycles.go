package deadcode

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/deadlint/internal/ir"
)

// Cycle is a group of dead declarations that only reference each other,
// such as two private functions calling one another and nothing else.
//
// Cycles are notes, not findings: every member is already reported on its
// own. The grouping tells the reader the members can be removed together.
type Cycle struct {
	Decls   []ir.ID  `json:"decls"`
	Path    []string `json:"path"` // ["a", "b", "a"]
	Message string   `json:"message"`
}

// DeadCycles groups dead declarations into strongly connected components of
// their reference graph and returns each component that forms a cycle.
//
// The algorithm:
//  1. Visit each dead declaration once with a fresh marker and collect what
//     it references, lifted to the enclosing dead declaration
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Components are returned in order of their smallest member.
func DeadCycles(c *ir.Crate, info TypeInfo, aliases map[ir.ID]ir.ID, dead []ir.ID) ([]Cycle, error) {
	if len(dead) == 0 {
		return nil, nil
	}
	graph, err := buildReferenceGraph(c, info, aliases, dead)
	if err != nil {
		return nil, err
	}

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(c, scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b Cycle) int { return int(a.Decls[0]) - int(b.Decls[0]) })
	return cycles, nil
}

// referenceGraph maps a dead declaration to the dead declarations it uses.
type referenceGraph map[ir.ID][]ir.ID

func buildReferenceGraph(c *ir.Crate, info TypeInfo, aliases map[ir.ID]ir.ID, dead []ir.ID) (referenceGraph, error) {
	isDead := make(map[ir.ID]bool, len(dead))
	for _, id := range dead {
		isDead[id] = true
	}
	// owner lifts a referenced node (a field, a constructor) to the dead
	// declaration enclosing it.
	owner := func(id ir.ID) (ir.ID, bool) {
		if target, ok := aliases[id]; ok {
			id = target
		}
		for ; id.IsValid(); id = c.Parent(id) {
			if isDead[id] {
				return id, true
			}
		}
		return ir.NoID, false
	}

	graph := make(referenceGraph, len(dead))
	for _, id := range dead {
		m := newMarker(c, info, []ir.ID{id}, aliases, nil)
		if err := m.guard(func() { m.step() }); err != nil {
			return nil, err
		}

		edges := map[ir.ID]bool{}
		for _, w := range m.worklist {
			o, ok := owner(w)
			if !ok {
				continue
			}
			// Only a direct use of the declaration (or its constructor) is
			// recursion; uses of its own nested items are not.
			if o == id && w != id && aliases[w] != id {
				continue
			}
			edges[o] = true
		}
		for _, l := range m.live.IDs() {
			if o, ok := owner(l); ok && o != id {
				edges[o] = true
			}
		}

		graph[id] = []ir.ID{}
		for e := range edges {
			graph[id] = append(graph[id], e)
		}
		slices.Sort(graph[id])
	}
	return graph, nil
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node ir.ID, graph referenceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in ascending ID order so the result is deterministic.
func tarjanSCC(graph referenceGraph) [][]ir.ID {
	var (
		index   = 0
		stack   []ir.ID
		indices = make(map[ir.ID]int)
		lowlink = make(map[ir.ID]int)
		onStack = make(map[ir.ID]bool)
		sccs    [][]ir.ID
	)

	var strongConnect func(ir.ID)
	strongConnect = func(v ir.ID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []ir.ID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]ir.ID, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(c *ir.Crate, scc []ir.ID, graph referenceGraph) Cycle {
	path := reconstructCyclePath(scc, graph)
	names := make([]string, len(path))
	for i, id := range path {
		names[i] = c.DefPath(id)
	}
	if len(scc) == 1 {
		return Cycle{
			Decls:   scc,
			Path:    names,
			Message: fmt.Sprintf("%s `%s` is only used by itself", c.Descr(scc[0]), names[0]),
		}
	}
	return Cycle{
		Decls:   scc,
		Path:    names,
		Message: fmt.Sprintf("dead declarations only use each other: %s", strings.Join(names, " → ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its smallest
// member until it returns there.
func reconstructCyclePath(scc []ir.ID, graph referenceGraph) []ir.ID {
	if len(scc) == 1 {
		return []ir.ID{scc[0], scc[0]}
	}
	inSCC := make(map[ir.ID]bool, len(scc))
	for _, id := range scc {
		inSCC[id] = true
	}

	start := scc[0]
	current := start
	path := []ir.ID{current}
	visited := map[ir.ID]bool{}
	for {
		visited[current] = true
		next := ir.NoID
		for _, w := range graph[current] {
			if inSCC[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if !next.IsValid() {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
