package config

// detectCycle returns the projects participating in a depends_on cycle, or nil.
// The returned path repeats its first project at the end.
func detectCycle(projects []ProjectSpec) []string {
	graph := make(map[string][]string, len(projects))
	for _, p := range projects {
		graph[p.Name] = p.DependsOn
	}

	visiting := make(map[string]bool, len(projects))
	visited := make(map[string]bool, len(projects))
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if visited[dep] {
				continue
			}
			if visiting[dep] {
				if idx := indexOf(stack, dep); idx >= 0 {
					cycle = append([]string{}, stack[idx:]...)
					cycle = append(cycle, dep)
				}
				return true
			}
			if dfs(dep) {
				return true
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	for _, p := range projects {
		if !visited[p.Name] && dfs(p.Name) {
			break
		}
	}
	return cycle
}

func indexOf(slice []string, target string) int {
	for i, v := range slice {
		if v == target {
			return i
		}
	}
	return -1
}
