package project

import (
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// dependencyGraph tracks depends-on relationships between projects of one run.
type dependencyGraph struct {
	names    []string
	index    map[string]int
	outgoing map[string][]string // dependent -> dependencies
	incoming map[string][]string // dependency -> dependents
}

func newDependencyGraph(projects []*Project) *dependencyGraph {
	g := &dependencyGraph{
		index:    make(map[string]int, len(projects)),
		outgoing: make(map[string][]string, len(projects)),
		incoming: make(map[string][]string, len(projects)),
	}
	for i, p := range projects {
		g.names = append(g.names, p.Name)
		g.index[p.Name] = i
	}
	for _, p := range projects {
		seen := make(map[string]struct{}, len(p.DependsOn))
		for _, dep := range p.DependsOn {
			// Projects outside this run are built elsewhere.
			if _, ok := g.index[dep]; !ok || dep == p.Name {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			g.outgoing[p.Name] = append(g.outgoing[p.Name], dep)
			g.incoming[dep] = append(g.incoming[dep], p.Name)
		}
	}
	return g
}

// detectCycle returns one cycle if present or nil when the graph is acyclic.
func (g *dependencyGraph) detectCycle() []string {
	visited := make(map[string]bool, len(g.names))
	stack := make(map[string]bool, len(g.names))
	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		visited[node] = true
		stack[node] = true
		path = append(path, node)

		for _, dep := range g.outgoing[node] {
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if stack[dep] {
				idx := len(path) - 1
				for idx >= 0 && path[idx] != dep {
					idx--
				}
				if idx >= 0 {
					cycle = append([]string{}, path[idx:]...)
					return true
				}
			}
		}

		stack[node] = false
		path = path[:len(path)-1]
		return false
	}

	for _, name := range g.names {
		if !visited[name] && dfs(name) {
			break
		}
	}
	return cycle
}

// Order returns projects so that every project follows the projects it depends on.
// Unrelated projects keep their relative input order.
func Order(projects []*Project) ([]*Project, error) {
	g := newDependencyGraph(projects)
	if cycle := g.detectCycle(); len(cycle) > 0 {
		return nil, foundryerrors.NewCycleError(foundryerrors.KindProjectCycle, cycle)
	}

	remaining := make(map[string]int, len(g.names))
	for _, name := range g.names {
		remaining[name] = len(g.outgoing[name])
	}

	done := make([]bool, len(projects))
	ordered := make([]*Project, 0, len(projects))
	for len(ordered) < len(projects) {
		// Lowest input index among ready projects wins.
		next := -1
		for i, name := range g.names {
			if !done[i] && remaining[name] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		ordered = append(ordered, projects[next])
		for _, dependent := range g.incoming[g.names[next]] {
			remaining[dependent]--
		}
	}

	return ordered, nil
}

// TransitiveDependencies returns the names of every project name depends on, directly or not.
func TransitiveDependencies(projects []*Project, name string) []string {
	g := newDependencyGraph(projects)
	seen := map[string]bool{name: true}
	var out []string
	queue := append([]string(nil), g.outgoing[name]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		out = append(out, current)
		queue = append(queue, g.outgoing[current]...)
	}
	return out
}
