// Package graph resolves requested nodes and their transitive pre
// dependencies into an acyclic graph.
package graph

import (
	"slices"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// Graph holds the nodes required to run a request. Nodes are stored in an
// arena in workflow declaration order and referenced by index.
type Graph struct {
	Nodes []*workflow.Node
	// Pre holds the direct predecessor indices of each node, in pre order.
	Pre [][]int
	// Requested are the indices of the nodes that were asked for.
	Requested []int
	// Order is a topological order: every node follows all its predecessors.
	Order []int
}

type state uint8

const (
	unvisited state = iota
	visiting
	done
)

type frame struct {
	node   int // index into the workflow node set
	cursor int // next entry of node.Pre to visit
}

// Build walks the pre edges from every requested node. It fails with an
// unknown node error for undeclared names and a cycle error naming the path.
// Duplicate requests are ignored.
func Build(nodes workflow.NodeSet, requested []string) (*Graph, error) {
	if len(requested) == 0 {
		return nil, errors.NewInvalidArgumentError("no nodes requested").
			WithSuggestion("Pass at least one node with -n")
	}

	states := make([]state, nodes.Len())
	var order []int // workflow indices in post order
	var roots []int

	for _, name := range requested {
		root, ok := nodes.Index(name)
		if !ok {
			return nil, errors.NewUnknownNodeError(name, "")
		}
		if !slices.Contains(roots, root) {
			roots = append(roots, root)
		}
		if states[root] == done {
			continue
		}

		stack := []frame{{node: root}}
		states[root] = visiting
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			pre := nodes.At(top.node).Pre
			if top.cursor == len(pre) {
				states[top.node] = done
				order = append(order, top.node)
				stack = stack[:len(stack)-1]
				continue
			}

			depName := pre[top.cursor]
			top.cursor++
			dep, ok := nodes.Index(depName)
			if !ok {
				return nil, errors.NewUnknownNodeError(depName, nodes.At(top.node).Name)
			}
			switch states[dep] {
			case visiting:
				return nil, errors.NewGraphCycleError(cyclePath(nodes, stack, dep))
			case unvisited:
				states[dep] = visiting
				stack = append(stack, frame{node: dep})
			}
		}
	}

	return compact(nodes, states, order, roots), nil
}

// cyclePath renders the stack from the first occurrence of dep back to dep.
func cyclePath(nodes workflow.NodeSet, stack []frame, dep int) []string {
	start := 0
	for i, f := range stack {
		if f.node == dep {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, nodes.At(f.node).Name)
	}
	return append(path, nodes.At(dep).Name)
}

// compact renumbers the visited nodes into a dense arena in declaration order.
func compact(nodes workflow.NodeSet, states []state, order, roots []int) *Graph {
	arena := make([]int, len(states))
	g := &Graph{}
	for i, s := range states {
		arena[i] = -1
		if s == done {
			arena[i] = len(g.Nodes)
			g.Nodes = append(g.Nodes, nodes.At(i))
		}
	}

	g.Pre = make([][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		seen := make(map[int]bool, len(n.Pre))
		for _, p := range n.Pre {
			wi, _ := nodes.Index(p)
			if seen[arena[wi]] {
				continue
			}
			seen[arena[wi]] = true
			g.Pre[i] = append(g.Pre[i], arena[wi])
		}
	}
	for _, r := range roots {
		g.Requested = append(g.Requested, arena[r])
	}
	for _, o := range order {
		g.Order = append(g.Order, arena[o])
	}
	return g
}

// Names returns the node names of the given arena indices.
func (g *Graph) Names(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = g.Nodes[idx].Name
	}
	return out
}
