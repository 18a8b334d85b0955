// pkg/resolve/graph.go
package resolve

import (
	"sort"

	"github.com/omni-pm/omni/pkg/core"
)

// graph is the dependency graph under resolution. An edge from a to b
// means a depends on b.
type graph struct {
	nodes map[core.PackageRef]*node
	order []core.PackageRef // insertion order, for deterministic traversal
}

type node struct {
	version string
	elided  bool // already installed at a satisfying version
	deps    []core.PackageRef
}

func newGraph() *graph {
	return &graph{nodes: make(map[core.PackageRef]*node)}
}

func (g *graph) add(ref core.PackageRef, version string, elided bool) {
	if _, ok := g.nodes[ref]; ok {
		return
	}
	g.nodes[ref] = &node{version: version, elided: elided}
	g.order = append(g.order, ref)
}

func (g *graph) edge(from, to core.PackageRef) {
	g.nodes[from].deps = append(g.nodes[from].deps, to)
}

// visit states for the DFS.
const (
	unvisited = iota
	visiting
	visited
)

// topoSort returns the refs dependency-first. A cycle yields a
// CycleError naming the refs on the cycle path.
func (g *graph) topoSort() ([]core.PackageRef, error) {
	state := make(map[core.PackageRef]int, len(g.nodes))
	var sorted []core.PackageRef
	var path []core.PackageRef

	var walk func(ref core.PackageRef) error
	walk = func(ref core.PackageRef) error {
		switch state[ref] {
		case visited:
			return nil
		case visiting:
			return &CycleError{Members: cycleFrom(path, ref)}
		}

		state[ref] = visiting
		path = append(path, ref)

		deps := append([]core.PackageRef(nil), g.nodes[ref].deps...)
		sort.Slice(deps, func(i, j int) bool {
			if deps[i].Backend != deps[j].Backend {
				return deps[i].Backend < deps[j].Backend
			}
			return deps[i].Name < deps[j].Name
		})
		for _, dep := range deps {
			if err := walk(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[ref] = visited
		sorted = append(sorted, ref)
		return nil
	}

	for _, ref := range g.order {
		if err := walk(ref); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

// cycleFrom extracts the cycle members from the DFS path, starting at
// the first occurrence of the repeated ref.
func cycleFrom(path []core.PackageRef, repeat core.PackageRef) []core.PackageRef {
	for i, ref := range path {
		if ref == repeat {
			members := append([]core.PackageRef(nil), path[i:]...)
			return members
		}
	}
	return []core.PackageRef{repeat}
}
