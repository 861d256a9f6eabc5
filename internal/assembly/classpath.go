package assembly

import (
	"path/filepath"

	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// ClasspathResolver turns a project's declared dependencies into classpath entries.
type ClasspathResolver interface {
	Resolve(p *project.Project, scope plugin.ClasspathScope) ([]model.ClasspathEntry, error)
}

// StaticResolver resolves dependencies that are already paths on disk.
// Relative paths are taken from the project directory. Nothing is downloaded.
type StaticResolver struct{}

// Resolve implements ClasspathResolver.
func (StaticResolver) Resolve(p *project.Project, scope plugin.ClasspathScope) ([]model.ClasspathEntry, error) {
	deps := p.Dependencies
	if scope == plugin.ScopeTest {
		deps = append(append([]string(nil), p.Dependencies...), p.TestDependencies...)
	}

	entries := make([]model.ClasspathEntry, 0, len(deps))
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		path := p.Path(dep)
		if seen[path] {
			continue
		}
		seen[path] = true
		entries = append(entries, model.ClasspathEntry{Path: path, ID: filepath.Base(dep)})
	}
	return entries, nil
}
