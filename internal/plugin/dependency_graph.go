package plugin

// dependencyGraph orders plugin initialization so dependencies declare their tasks first.
type dependencyGraph struct {
	nodes    []string
	known    map[string]struct{}
	outgoing map[string][]string // dependent -> dependencies
	incoming map[string][]string // dependency -> dependents
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		known:    make(map[string]struct{}),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// addNode registers name, keeping first-seen order.
func (g *dependencyGraph) addNode(name string) {
	if _, exists := g.known[name]; exists {
		return
	}
	g.known[name] = struct{}{}
	g.nodes = append(g.nodes, name)
}

// addEdge records that dependent needs dependency.
func (g *dependencyGraph) addEdge(dependent, dependency string) {
	g.addNode(dependent)
	g.addNode(dependency)
	g.outgoing[dependent] = append(g.outgoing[dependent], dependency)
	g.incoming[dependency] = append(g.incoming[dependency], dependent)
}

// detectCycle returns one cycle if present or nil when the graph is acyclic.
func (g *dependencyGraph) detectCycle() []string {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var path, cycle []string

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

	for _, node := range g.nodes {
		if !visited[node] && dfs(node) {
			break
		}
	}
	return cycle
}

// topologicalSort returns nodes dependencies first, falling back to first-seen order on ties.
func (g *dependencyGraph) topologicalSort() ([]string, error) {
	if cycle := g.detectCycle(); len(cycle) > 0 {
		return nil, ErrCircularDependency{Cycle: cycle}
	}

	remaining := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		remaining[node] = len(g.outgoing[node])
	}

	done := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	for len(result) < len(g.nodes) {
		next := ""
		for _, node := range g.nodes {
			if !done[node] && remaining[node] == 0 {
				next = node
				break
			}
		}
		done[next] = true
		result = append(result, next)
		for _, dependent := range g.incoming[next] {
			remaining[dependent]--
		}
	}
	return result, nil
}
