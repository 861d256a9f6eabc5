// Package jvm declares the core build tasks (compile, compileTest, test, clean,
// doc, assemble and build) and delegates the actual work to whichever compiler,
// test runner and documentation capabilities the registry offers for a project.
package jvm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/foundry/internal/assembly"
	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Name is the registered plugin name.
const Name = "jvm"

// Task names declared by the plugin.
const (
	TaskCompile     = "compile"
	TaskCompileTest = "compileTest"
	TaskTest        = "test"
	TaskClean       = "clean"
	TaskDoc         = "doc"
	TaskAssemble    = "assemble"
	TaskBuild       = "build"
)

// Plugin owns the core tasks. Per-project classes directories are recorded on
// Apply so dependent projects can put them on their classpath.
type Plugin struct {
	resolver  assembly.ClasspathResolver
	registry  *plugin.Registry
	assembler *assembly.Assembler
	log       *logger.Logger

	mu      sync.RWMutex
	classes map[string]string // project name -> classes directory
}

var (
	_ plugin.Plugin               = (*Plugin)(nil)
	_ plugin.TaskContributor      = (*Plugin)(nil)
	_ plugin.Applier              = (*Plugin)(nil)
	_ plugin.ClasspathContributor = (*Plugin)(nil)
)

// New creates the plugin. A nil resolver means assembly.StaticResolver.
func New(resolver assembly.ClasspathResolver) *Plugin {
	return &Plugin{resolver: resolver, classes: make(map[string]string)}
}

func (p *Plugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        Name,
		Version:     "1.0.0",
		Description: "Compiles, tests, documents and cleans projects through registered backends.",
	}
}

// DeclareTasks declares the tasks shared by every project.
func (p *Plugin) DeclareTasks(ctx *plugin.Context) error {
	p.registry = ctx.Registry
	p.assembler = assembly.NewAssembler(ctx.Registry, p.resolver)
	p.log = ctx.Logger.ForPlugin(Name)

	if _, err := ctx.Catalog.DeclareIncrementalTask(catalog.Task{
		Plugin:      Name,
		Name:        TaskCompileTest,
		Description: "Compile the tests",
		RunAfter:    []string{TaskCompile},
		Body: func(ctx context.Context, proj *project.Project) model.TaskResult {
			return p.compile(ctx, proj, project.Variant{}, plugin.ScopeTest)
		},
	}, catalog.Incremental{
		Input: func(proj *project.Project) (fingerprint.Fingerprint, error) {
			return fingerprint.Directories(p.assembler.SourceDirectories(proj, project.Variant{}, plugin.ScopeTest)...)
		},
		Output: func(proj *project.Project) (fingerprint.Fingerprint, error) {
			return fingerprint.Directories(proj.TestClassesDir())
		},
	}); err != nil {
		return err
	}

	static := []catalog.Task{
		{
			Name:        TaskTest,
			Description: "Run the tests",
			RunAfter:    []string{TaskCompile, TaskCompileTest},
			Body:        p.test,
		},
		{
			Name:        TaskClean,
			Description: "Clean the project",
			Body:        p.clean,
		},
		{
			Name:        TaskDoc,
			Description: "Generate the documentation for the project",
			RunAfter:    []string{TaskCompile},
			Body:        p.doc,
		},
		{
			Name:        TaskBuild,
			Description: "Assemble and test the project",
			RunAfter:    []string{TaskAssemble, TaskTest},
			Body: func(context.Context, *project.Project) model.TaskResult {
				return model.Succeeded("")
			},
		},
	}
	for _, task := range static {
		task.Plugin = Name
		if _, err := ctx.Catalog.DeclareTask(task); err != nil {
			return err
		}
	}
	return nil
}

// Apply declares the per-variant compile and assemble tasks of proj.
func (p *Plugin) Apply(ctx *plugin.Context, proj *project.Project) error {
	proj.Props().Set(project.PropertyDependentProjects, append([]string(nil), proj.DependsOn...))

	p.mu.Lock()
	p.classes[proj.Name] = proj.ClassesDir()
	p.mu.Unlock()

	_, err := ctx.Catalog.DeclareVariantTasks(catalog.Task{
		Plugin:      Name,
		Name:        TaskCompile,
		Description: "Compile the project",
		Project:     proj.Name,
	}, proj.Variants, func(v project.Variant) catalog.Body {
		return func(ctx context.Context, proj *project.Project) model.TaskResult {
			return p.compile(ctx, proj, v, plugin.ScopeCompile)
		}
	}, func(v project.Variant) catalog.Incremental {
		return catalog.Incremental{
			Input: func(proj *project.Project) (fingerprint.Fingerprint, error) {
				sources, err := fingerprint.Directories(p.assembler.SourceDirectories(proj, v, plugin.ScopeCompile)...)
				if err != nil {
					return "", err
				}
				return fingerprint.Combine(sources, fingerprint.Strings(p.assembler.Flags(proj, v)...)), nil
			},
			Output: func(proj *project.Project) (fingerprint.Fingerprint, error) {
				return fingerprint.Directories(p.outputDirectory(proj, v))
			},
		}
	})
	if err != nil {
		return err
	}

	_, err = ctx.Catalog.DeclareVariantTasks(catalog.Task{
		Plugin:      Name,
		Name:        TaskAssemble,
		Description: "Collect the compiled output of the project",
		Project:     proj.Name,
		RunAfter:    []string{TaskCompile},
	}, proj.Variants, func(v project.Variant) catalog.Body {
		return func(_ context.Context, proj *project.Project) model.TaskResult {
			out := p.outputDirectory(proj, v)
			if _, err := os.Stat(out); err != nil {
				p.log.Infof("%s: nothing to assemble for variant %s", proj.Name, v)
				return model.Succeeded("nothing to assemble")
			}
			return model.Succeeded(out)
		}
	}, nil)
	return err
}

// ClasspathEntries puts the classes of depended-on projects on the classpath, and
// the project's own classes on its test classpath.
func (p *Plugin) ClasspathEntries(proj *project.Project, scope plugin.ClasspathScope) []model.ClasspathEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var entries []model.ClasspathEntry
	if scope == plugin.ScopeTest {
		entries = append(entries, model.ClasspathEntry{Path: proj.ClassesDir(), ID: proj.Name})
	}
	deps := proj.Props().Strings(project.PropertyDependentProjects)
	sort.Strings(deps)
	for _, dep := range deps {
		if dir, ok := p.classes[dep]; ok {
			entries = append(entries, model.ClasspathEntry{Path: dir, ID: dep})
		}
	}
	return entries
}

func (p *Plugin) outputDirectory(proj *project.Project, v project.Variant) string {
	return p.assembler.OutputDirectory(proj, v, proj.ClassesDir())
}

func (p *Plugin) compilers(proj *project.Project) []plugin.CompilerBackend {
	var backends []plugin.CompilerBackend
	for _, c := range plugin.ContributorsFor[plugin.CompilerContributor](p.registry, proj) {
		backends = append(backends, c.Compilers(proj)...)
	}
	return backends
}

func (p *Plugin) compile(ctx context.Context, proj *project.Project, v project.Variant, scope plugin.ClasspathScope) model.TaskResult {
	backends := p.compilers(proj)
	if len(backends) == 0 {
		p.log.Infof("couldn't find any compiler for project %s", proj.Name)
		return model.Succeeded("no compiler")
	}

	out := ""
	if scope == plugin.ScopeTest {
		out = proj.TestClassesDir()
	}

	var results []model.TaskResult
	for _, backend := range backends {
		info, err := p.assembler.Assemble(proj, assembly.Request{
			Variant:         v,
			Scope:           scope,
			Suffixes:        backend.SourceSuffixes(),
			OutputDirectory: out,
		})
		if err != nil {
			return model.Failed(err.Error())
		}
		if len(info.SourceFiles) == 0 {
			p.log.Debugf("compiler %s not running on %s since no source files were found", backend.Name(), proj.Name)
			continue
		}
		p.log.Debugf("%s: compiling %d files with %s into %s", proj.Name, len(info.SourceFiles), backend.Name(), info.OutputDirectory)
		results = append(results, backend.Compile(ctx, proj, info))
	}

	if len(results) == 0 {
		return model.Succeeded("no source files")
	}
	return model.AggregateResults(p.log, results)
}

func (p *Plugin) test(ctx context.Context, proj *project.Project) model.TaskResult {
	var runners []plugin.TestRunnerBackend
	for _, c := range plugin.ContributorsFor[plugin.TestRunnerContributor](p.registry, proj) {
		runners = append(runners, c.TestRunners()...)
	}

	runner, ok := plugin.SelectAffinityActor(proj, runners)
	if !ok {
		if proj.TestDirective {
			p.log.Warnf("couldn't find a test runner for project %s, not running any tests", proj.Name)
		} else {
			p.log.Infof("couldn't find a test runner for project %s, not running any tests", proj.Name)
		}
		return model.Succeeded("no test runner")
	}

	classpath, err := p.assembler.Classpath(proj, plugin.ScopeTest)
	if err != nil {
		return model.Failed(err.Error())
	}
	classpath = append([]model.ClasspathEntry{{Path: proj.TestClassesDir(), ID: proj.Name + "-tests"}}, classpath...)

	p.log.Infof("%s: running tests with %s", proj.Name, runner.Name())
	return runner.Run(ctx, proj, classpath)
}

func (p *Plugin) clean(_ context.Context, proj *project.Project) model.TaskResult {
	dir := proj.BuildPath()
	if err := os.RemoveAll(dir); err != nil {
		p.log.Warnf("couldn't delete %s: %v", dir, err)
	}
	return model.Succeeded(fmt.Sprintf("removed %s", dir))
}

// doc hands the generator the same action a compile of the default variant would get.
func (p *Plugin) doc(ctx context.Context, proj *project.Project) model.TaskResult {
	var generators []plugin.DocGenerator
	for _, c := range plugin.ContributorsFor[plugin.DocContributor](p.registry, proj) {
		generators = append(generators, c.DocGenerators()...)
	}

	generator, ok := plugin.SelectAffinityActor(proj, generators)
	if !ok {
		p.log.Warnf("couldn't find any doc contributor for project %s", proj.Name)
		return model.Succeeded("no doc generator")
	}

	var results []model.TaskResult
	for _, backend := range p.compilers(proj) {
		info, err := p.assembler.Assemble(proj, assembly.Request{
			Scope:    plugin.ScopeCompile,
			Suffixes: backend.SourceSuffixes(),
		})
		if err != nil {
			return model.Failed(err.Error())
		}
		results = append(results, generator.GenerateDoc(ctx, proj, info))
	}
	return model.AggregateResults(p.log, results)
}
