package plugin

import (
	"context"

	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// AffinityActor scores how strongly it wants to handle a project. Zero means not applicable.
type AffinityActor interface {
	Affinity(p *project.Project) int
}

// ClasspathScope selects which classpath a contributor is asked about.
type ClasspathScope string

const (
	ScopeCompile ClasspathScope = "compile"
	ScopeTest    ClasspathScope = "test"
)

// SourceDirectoryContributor adds main source directories.
type SourceDirectoryContributor interface {
	SourceDirectories(p *project.Project, v project.Variant) []string
}

// TestSourceDirectoryContributor adds test source directories.
type TestSourceDirectoryContributor interface {
	TestSourceDirectories(p *project.Project, v project.Variant) []string
}

// SourceDirectoriesInterceptor rewrites the accumulated main source directories.
type SourceDirectoriesInterceptor interface {
	InterceptSourceDirectories(p *project.Project, v project.Variant, dirs []string) []string
}

// ClasspathContributor adds entries to a project's classpath.
type ClasspathContributor interface {
	ClasspathEntries(p *project.Project, scope ClasspathScope) []model.ClasspathEntry
}

// ClasspathInterceptor rewrites the accumulated classpath.
type ClasspathInterceptor interface {
	InterceptClasspath(p *project.Project, scope ClasspathScope, entries []model.ClasspathEntry) []model.ClasspathEntry
}

// CompilerFlagContributor adds compiler flags.
type CompilerFlagContributor interface {
	CompilerFlags(p *project.Project, v project.Variant) []string
}

// BuildDirectoryInterceptor redirects where compiled output is written.
type BuildDirectoryInterceptor interface {
	InterceptBuildDirectory(p *project.Project, v project.Variant, dir string) string
}

// CompilerInterceptor gets the last word on a compiler action.
type CompilerInterceptor interface {
	InterceptCompilerAction(p *project.Project, v project.Variant, info model.ActionInfo) model.ActionInfo
}

// CompilerBackend compiles the sources matching its suffixes.
type CompilerBackend interface {
	Name() string
	SourceSuffixes() []string
	Compile(ctx context.Context, p *project.Project, info model.ActionInfo) model.TaskResult
}

// CompilerContributor supplies compiler backends.
type CompilerContributor interface {
	Compilers(p *project.Project) []CompilerBackend
}

// TestRunnerBackend runs a project's tests against a classpath.
type TestRunnerBackend interface {
	AffinityActor
	Name() string
	Run(ctx context.Context, p *project.Project, classpath []model.ClasspathEntry) model.TaskResult
}

// TestRunnerContributor supplies test runner backends.
type TestRunnerContributor interface {
	TestRunners() []TestRunnerBackend
}

// DocGenerator renders documentation from the same action a compiler would get.
type DocGenerator interface {
	AffinityActor
	Name() string
	GenerateDoc(ctx context.Context, p *project.Project, info model.ActionInfo) model.TaskResult
}

// DocContributor supplies documentation generators.
type DocContributor interface {
	DocGenerators() []DocGenerator
}
