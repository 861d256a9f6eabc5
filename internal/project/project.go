// Package project models the buildable units the engine schedules tasks for.
package project

import (
	"path/filepath"
	"sync"
)

// Well-known property names plugins use to exchange data through a project.
const (
	// PropertyDependentProjects holds the names of projects this project depends on.
	PropertyDependentProjects = "dependentProjects"
	// PropertyCompilerArgs holds extra compiler flags as []string.
	PropertyCompilerArgs = "compilerArgs"
)

// Default directory names relative to a project's build directory.
const (
	DefaultBuildDirectory = "build"
	ClassesDirectory      = "classes"
	TestClassesDirectory  = "test-classes"
	DocsDirectory         = "docs"
)

// Project identifies a directory with its sources, dependencies and build output.
// Identity fields are fixed once the project is created; only Properties change during a run.
type Project struct {
	Name                  string
	Directory             string
	BuildDirectory        string
	SourceDirectories     []string
	TestSourceDirectories []string
	Dependencies          []string
	TestDependencies      []string
	ExcludedDependencies  []string
	DependsOn             []string
	Variants              []Variant

	// TestDirective is true when the project explicitly asked for tests to run.
	TestDirective bool

	Properties *Properties
}

// New creates a project rooted at dir with default build layout.
func New(name, dir string) *Project {
	return &Project{
		Name:           name,
		Directory:      dir,
		BuildDirectory: DefaultBuildDirectory,
		Properties:     NewProperties(),
	}
}

// Path joins elements onto the project directory unless the first element is absolute.
func (p *Project) Path(elem ...string) string {
	if len(elem) > 0 && filepath.IsAbs(elem[0]) {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{p.Directory}, elem...)...)
}

// BuildPath returns a path inside the project's build directory.
func (p *Project) BuildPath(elem ...string) string {
	build := p.BuildDirectory
	if build == "" {
		build = DefaultBuildDirectory
	}
	return p.Path(append([]string{build}, elem...)...)
}

// ClassesDir is the default output directory for main sources.
func (p *Project) ClassesDir() string {
	return p.BuildPath(ClassesDirectory)
}

// TestClassesDir is the default output directory for test sources.
func (p *Project) TestClassesDir() string {
	return p.BuildPath(TestClassesDirectory)
}

// Props returns the property bag, creating it on first use.
func (p *Project) Props() *Properties {
	if p.Properties == nil {
		p.Properties = NewProperties()
	}
	return p.Properties
}

// Properties is a concurrency-safe bag plugins use to pass values between each other.
type Properties struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewProperties creates an empty property bag.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (p *Properties) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Strings returns a copy of the []string stored under key, or nil.
func (p *Properties) Strings(key string) []string {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	values, ok := v.([]string)
	if !ok {
		return nil
	}
	return append([]string(nil), values...)
}

// Append adds values to the []string stored under key.
func (p *Properties) Append(key string, values ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, _ := p.values[key].([]string)
	next := make([]string, 0, len(existing)+len(values))
	next = append(next, existing...)
	next = append(next, values...)
	p.values[key] = next
}
