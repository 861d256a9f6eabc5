// Package config loads the workspace manifest (foundry.yaml) that describes the
// projects of a workspace and the command backends that build them.
package config

// Manifest represents the full foundry.yaml document.
type Manifest struct {
	Version     string        `yaml:"version" validate:"required,semver"`
	Name        string        `yaml:"name" validate:"required,min=1,max=100"`
	Description string        `yaml:"description,omitempty"`
	Settings    Settings      `yaml:"settings,omitempty"`
	Projects    []ProjectSpec `yaml:"projects" validate:"required,min=1,dive"`
	Backends    Backends      `yaml:"backends,omitempty"`
}

// Settings holds workspace-wide execution parameters. Flags and FOUNDRY_ environment
// variables take precedence over these values.
type Settings struct {
	Parallel       int      `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=64"`
	Baseline       string   `yaml:"baseline,omitempty"`
	DefaultTargets []string `yaml:"default_targets,omitempty" validate:"omitempty,dive,required"`
}

// ProjectSpec declares one project of the workspace.
type ProjectSpec struct {
	Name                  string       `yaml:"name" validate:"required,project_name"`
	Directory             string       `yaml:"directory,omitempty"`
	BuildDirectory        string       `yaml:"build_directory,omitempty"`
	SourceDirectories     []string     `yaml:"source_directories,omitempty" validate:"omitempty,dive,required"`
	TestSourceDirectories []string     `yaml:"test_source_directories,omitempty" validate:"omitempty,dive,required"`
	Dependencies          []string     `yaml:"dependencies,omitempty" validate:"omitempty,dive,required"`
	TestDependencies      []string     `yaml:"test_dependencies,omitempty" validate:"omitempty,dive,required"`
	ExcludedDependencies  []string     `yaml:"excluded_dependencies,omitempty"`
	DependsOn             []string     `yaml:"depends_on,omitempty" validate:"omitempty,dive,project_name"`
	CompilerArgs          []string     `yaml:"compiler_args,omitempty"`
	Variants              VariantsSpec `yaml:"variants,omitempty"`
	// Test marks an explicit request to run tests; finding none is then worth a warning.
	Test bool `yaml:"test,omitempty"`
}

// VariantsSpec declares the variant axes of a project.
type VariantsSpec struct {
	BuildTypes     []string `yaml:"build_types,omitempty" validate:"omitempty,unique,dive,variant_name"`
	ProductFlavors []string `yaml:"product_flavors,omitempty" validate:"omitempty,unique,dive,variant_name"`
}

// Backends declares the external tools foundry shells out to.
type Backends struct {
	Compilers     []CompilerSpec   `yaml:"compilers,omitempty" validate:"omitempty,dive"`
	TestRunners   []TestRunnerSpec `yaml:"test_runners,omitempty" validate:"omitempty,dive"`
	DocGenerators []DocSpec        `yaml:"doc_generators,omitempty" validate:"omitempty,dive"`
}

// CommandSpec is an executable with arguments. Arguments may reference ${output},
// ${classpath}, ${sources}, ${flags}, ${project} and ${directory}.
type CommandSpec struct {
	Name    string   `yaml:"name" validate:"required,project_name"`
	Command string   `yaml:"command" validate:"required"`
	Args    []string `yaml:"args,omitempty"`
	Env     []string `yaml:"env,omitempty" validate:"omitempty,dive,contains=="`
	// FailOnStderr treats any stderr output as a failure, for tools that exit 0 on errors.
	FailOnStderr bool `yaml:"fail_on_stderr,omitempty"`
}

// CompilerSpec declares a compiler backend for a suffix set.
type CompilerSpec struct {
	CommandSpec `yaml:",inline"`
	Suffixes    []string `yaml:"suffixes" validate:"required,min=1,dive,suffix"`
}

// TestRunnerSpec declares a test runner. Affinity is only claimed for projects
// whose test dependencies mention RequiresDependency, when set.
type TestRunnerSpec struct {
	CommandSpec        `yaml:",inline"`
	RequiresDependency string `yaml:"requires_dependency,omitempty"`
	Affinity           int    `yaml:"affinity,omitempty" validate:"omitempty,min=0"`
}

// DocSpec declares a documentation generator.
type DocSpec struct {
	CommandSpec `yaml:",inline"`
	Suffixes    []string `yaml:"suffixes,omitempty" validate:"omitempty,dive,suffix"`
	Affinity    int      `yaml:"affinity,omitempty" validate:"omitempty,min=0"`
}
