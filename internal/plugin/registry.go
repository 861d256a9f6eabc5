package plugin

import (
	"fmt"
	"sync"

	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/project"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// Registry holds every plugin of the process in registration order.
// It is filled at startup and only read once frozen.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	byName  map[string]Plugin
	frozen  bool
	logger  *logger.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		byName: make(map[string]Plugin),
		logger: log,
	}
}

// Register adds a plugin. Names must be unique.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return foundryerrors.NewPluginError("", fmt.Errorf("plugin is nil"))
	}

	meta := p.PluginMetadata()
	if err := meta.Validate(); err != nil {
		return foundryerrors.NewPluginError(meta.Name, fmt.Errorf("invalid metadata: %w", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return foundryerrors.NewPluginError(meta.Name, ErrRegistryFrozen)
	}
	if _, exists := r.byName[meta.Name]; exists {
		return foundryerrors.NewConfigurationError(foundryerrors.KindDuplicatePlugin, meta.Name, "plugin already registered")
	}

	r.plugins = append(r.plugins, p)
	r.byName[meta.Name] = p
	r.logger.Debugf("registered plugin %s@%s", meta.Name, meta.Version)
	return nil
}

// Initialize lets every TaskContributor declare its static tasks, dependencies first,
// then freezes the registry.
func (r *Registry) Initialize(ctx *Context) error {
	order, err := r.initOrder()
	if err != nil {
		return err
	}

	for _, name := range order {
		p := r.byName[name]
		contributor, ok := p.(TaskContributor)
		if !ok {
			continue
		}
		if err := contributor.DeclareTasks(ctx); err != nil {
			return fmt.Errorf("init plugin '%s': %w", name, err)
		}
	}

	r.Freeze()
	return nil
}

func (r *Registry) initOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := newDependencyGraph()
	for _, p := range r.plugins {
		meta := p.PluginMetadata()
		graph.addNode(meta.Name)
		for _, dep := range meta.Dependencies {
			if _, ok := r.byName[dep]; !ok {
				return nil, ErrMissingDependency{Plugin: meta.Name, Dependency: dep}
			}
			graph.addEdge(meta.Name, dep)
		}
	}
	return graph.topologicalSort()
}

// Freeze marks startup complete; later registrations fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return nil, ErrPluginNotFound{Name: name}
	}
	return p, nil
}

// Plugins returns every plugin in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	plugins := r.Plugins()
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, NameOf(p))
	}
	return names
}

// Accepting returns the plugins participating in proj, in registration order.
func (r *Registry) Accepting(proj *project.Project) []Plugin {
	var out []Plugin
	for _, p := range r.Plugins() {
		if Accepts(p, proj) {
			out = append(out, p)
		}
	}
	return out
}

// AcceptsByName reports whether the named plugin participates in proj.
// Unknown plugins never do.
func (r *Registry) AcceptsByName(name string, proj *project.Project) bool {
	p, err := r.Get(name)
	if err != nil {
		return false
	}
	return Accepts(p, proj)
}

// ContributorsOf returns every registered plugin implementing T, in registration order.
func ContributorsOf[T any](r *Registry) []T {
	var out []T
	for _, p := range r.Plugins() {
		if c, ok := p.(T); ok {
			out = append(out, c)
		}
	}
	return out
}

// ContributorsFor is ContributorsOf restricted to plugins that accept proj.
func ContributorsFor[T any](r *Registry, proj *project.Project) []T {
	var out []T
	for _, p := range r.Accepting(proj) {
		if c, ok := p.(T); ok {
			out = append(out, c)
		}
	}
	return out
}
