package plugin

import "github.com/alexisbeaulieu97/foundry/internal/project"

// SelectAffinityActors keeps the candidates with positive affinity for p, in order.
func SelectAffinityActors[T AffinityActor](p *project.Project, candidates []T) []T {
	var out []T
	for _, c := range candidates {
		if c.Affinity(p) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// SelectAffinityActor returns the candidate with the highest positive affinity for p.
// Ties go to the earliest candidate. ok is false when every affinity is zero or below.
func SelectAffinityActor[T AffinityActor](p *project.Project, candidates []T) (selected T, ok bool) {
	best := 0
	for _, c := range candidates {
		if score := c.Affinity(p); score > best {
			best = score
			selected = c
			ok = true
		}
	}
	return selected, ok
}
