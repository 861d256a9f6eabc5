package engine

import (
	"sort"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// BuildGraph materializes the run-before and run-after constraints of tasks into
// explicit edges and rejects cycles. References to tasks that do not exist here
// are ignored, since plugins declare constraints for every project shape.
func BuildGraph(tasks []*catalog.Task) (*Graph, error) {
	declared := append([]*catalog.Task(nil), tasks...)
	sort.SliceStable(declared, func(i, j int) bool { return declared[i].Sequence() < declared[j].Sequence() })

	graph := NewGraph()
	for _, task := range declared {
		if _, err := graph.AddNode(task); err != nil {
			return nil, err
		}
	}

	for _, node := range graph.order {
		for _, ref := range node.Task.RunAfter {
			for _, before := range graph.Resolve(ref, node) {
				graph.AddEdge(before, node)
			}
		}
		for _, ref := range node.Task.RunBefore {
			for _, after := range graph.Resolve(ref, node) {
				graph.AddEdge(node, after)
			}
		}
	}

	if cycle := graph.DetectCycle(); len(cycle) > 0 {
		return nil, foundryerrors.NewCycleError(foundryerrors.KindCycle, cycle)
	}
	return graph, nil
}
