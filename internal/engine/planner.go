package engine

import (
	"fmt"
	"strings"
)

// Plan is the ordered closure of the requested targets in one project.
type Plan struct {
	Project string
	Targets []string
	Tasks   []*Node
	// Levels groups tasks that could run side by side once earlier levels finished.
	Levels [][]string
}

// NewPlan restricts graph to the closure of targets and orders it.
func NewPlan(projectName string, graph *Graph, targets []string) (*Plan, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	closure, err := graph.Closure(targets)
	if err != nil {
		return nil, err
	}
	ordered, err := graph.Order(closure)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Project: projectName,
		Targets: append([]string(nil), targets...),
		Tasks:   ordered,
		Levels:  levels(ordered),
	}, nil
}

// levels assigns each task the length of its longest predecessor chain within ordered.
func levels(ordered []*Node) [][]string {
	member := make(map[*Node]bool, len(ordered))
	for _, n := range ordered {
		member[n] = true
	}

	depth := make(map[*Node]int, len(ordered))
	var out [][]string
	for _, n := range ordered {
		d := 0
		for _, dep := range n.DependsOn {
			if member[dep] && depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[n] = d
		for len(out) <= d {
			out = append(out, nil)
		}
		out[d] = append(out[d], n.ID)
	}
	return out
}

// IDs returns task identities in execution order.
func (p *Plan) IDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Tasks))
	for _, n := range p.Tasks {
		ids = append(ids, n.ID)
	}
	return ids
}

// String renders a human readable summary of the plan.
func (p *Plan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project %s: %s\n", p.Project, strings.Join(p.IDs(), " -> "))
	for i, level := range p.Levels {
		fmt.Fprintf(&b, "  Level %d (%d tasks): %s\n", i, len(level), strings.Join(level, ", "))
	}
	return b.String()
}
