package engine

import (
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// Node represents a task in one project's graph.
type Node struct {
	ID         string
	Task       *catalog.Task
	DependsOn  []*Node
	Dependents []*Node

	index int
}

// Graph is the explicit ordering graph of one project's tasks.
// An edge from A to B means A must finish before B starts.
type Graph struct {
	Nodes map[string]*Node
	order []*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a task. Identities must be unique within the graph.
func (g *Graph) AddNode(task *catalog.Task) (*Node, error) {
	if task == nil {
		return nil, foundryerrors.NewExecutionError("", fmt.Errorf("task cannot be nil"))
	}

	id := task.ID()
	if _, exists := g.Nodes[id]; exists {
		return nil, foundryerrors.NewConfigurationError(foundryerrors.KindDuplicateTask, id, "task appears twice in one project")
	}

	node := &Node{ID: id, Task: task, index: len(g.order)}
	g.Nodes[id] = node
	g.order = append(g.order, node)
	return node, nil
}

// AddEdge records that from must finish before to starts. Repeated edges are ignored.
func (g *Graph) AddEdge(from, to *Node) {
	for _, existing := range from.Dependents {
		if existing == to {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
}

// NodesInOrder returns every node in declaration order.
func (g *Graph) NodesInOrder() []*Node {
	return append([]*Node(nil), g.order...)
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.order)
}

// Resolve finds the tasks a run-before or run-after reference made by from points at.
// A "plugin:name" reference is restricted to that plugin. A base name matches every
// task with that name whose variant is compatible with from's; if nothing matches,
// the reference is compared against variant-qualified names. from itself never matches.
func (g *Graph) Resolve(ref string, from *Node) []*Node {
	pluginName, name := catalog.SplitReference(ref)

	var matches []*Node
	for _, n := range g.order {
		if n == from || (pluginName != "" && n.Task.Plugin != pluginName) {
			continue
		}
		if n.Task.Name != name {
			continue
		}
		if from != nil && !variantsCompatible(n, from) {
			continue
		}
		matches = append(matches, n)
	}
	if len(matches) > 0 {
		return matches
	}

	for _, n := range g.order {
		if n == from || (pluginName != "" && n.Task.Plugin != pluginName) {
			continue
		}
		if n.Task.FullName() == name {
			matches = append(matches, n)
		}
	}
	return matches
}

// variantsCompatible is true for equal variants or when either side is unvariant.
func variantsCompatible(a, b *Node) bool {
	va, vb := a.Task.Variant, b.Task.Variant
	return va == vb || va.IsDefault() || vb.IsDefault()
}

const (
	white = iota
	grey
	black
)

// DetectCycle runs a three-color depth-first search and returns one cycle, or nil.
func (g *Graph) DetectCycle() []string {
	color := make(map[*Node]int, len(g.order))
	var path []*Node
	var cycle []string

	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		color[n] = grey
		path = append(path, n)
		for _, next := range n.Dependents {
			switch color[next] {
			case white:
				if visit(next) {
					return true
				}
			case grey:
				idx := len(path) - 1
				for idx >= 0 && path[idx] != next {
					idx--
				}
				for _, member := range path[idx:] {
					cycle = append(cycle, member.ID)
				}
				return true
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

// Closure returns the targets plus every transitive predecessor, in declaration order.
// A target that matches no task is a configuration error.
func (g *Graph) Closure(targets []string) ([]*Node, error) {
	in := make(map[*Node]bool)
	var queue []*Node
	for _, target := range targets {
		matches := g.Resolve(target, nil)
		if len(matches) == 0 {
			return nil, foundryerrors.NewConfigurationError(foundryerrors.KindUnknownTarget, target, "no task matches this target")
		}
		for _, n := range matches {
			if !in[n] {
				in[n] = true
				queue = append(queue, n)
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range current.DependsOn {
			if !in[dep] {
				in[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	closure := make([]*Node, 0, len(in))
	for n := range in {
		closure = append(closure, n)
	}
	sort.Slice(closure, func(i, j int) bool { return closure[i].index < closure[j].index })
	return closure, nil
}

// HasTarget reports whether target matches at least one task.
func (g *Graph) HasTarget(target string) bool {
	return len(g.Resolve(target, nil)) > 0
}

// Order sorts nodes topologically using only edges between members of nodes.
// Among ready nodes the earliest declared goes first.
func (g *Graph) Order(nodes []*Node) ([]*Node, error) {
	member := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		member[n] = true
	}

	remaining := make(map[*Node]int, len(nodes))
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if member[dep] {
				remaining[n]++
			}
		}
	}

	sorted := append([]*Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })

	done := make(map[*Node]bool, len(nodes))
	ordered := make([]*Node, 0, len(nodes))
	for len(ordered) < len(sorted) {
		var next *Node
		for _, n := range sorted {
			if !done[n] && remaining[n] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			return nil, foundryerrors.NewConfigurationError(foundryerrors.KindCycle, "", "cycle detected while sorting graph")
		}
		done[next] = true
		ordered = append(ordered, next)
		for _, dependent := range next.Dependents {
			if member[dependent] {
				remaining[dependent]--
			}
		}
	}
	return ordered, nil
}
