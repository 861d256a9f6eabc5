package commandplugin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/foundry/internal/config"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/plugins/internalexec"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// DefaultAffinity is claimed by runners and doc generators that do not set one.
const DefaultAffinity = 100

func invoke(ctx context.Context, log *logger.Logger, spec config.CommandSpec, dir string, vars Vars) model.TaskResult {
	args := expandArgs(spec.Args, vars)
	log.Debugf("%s: %s %s", spec.Name, spec.Command, strings.Join(args, " "))

	start := time.Now()
	res, err := internalexec.Run(ctx, internalexec.Invocation{
		Command: spec.Command,
		Args:    args,
		Dir:     dir,
		Env:     spec.Env,
	})
	if log.DebugEnabled() && res.Stdout != "" {
		log.Debugf("%s output:\n%s", spec.Name, strings.TrimRight(res.Stdout, "\n"))
	}
	if err != nil {
		msg := fmt.Sprintf("%s failed: %v", spec.Name, err)
		if out := internalexec.PrimaryOutput(res); out != "" {
			msg = fmt.Sprintf("%s: %s", msg, out)
		}
		return model.Failed(msg)
	}
	// Some tools exit 0 on errors and only complain on stderr.
	if spec.FailOnStderr && res.Stderr != "" {
		return model.Failed(fmt.Sprintf("%s reported errors: %s", spec.Name, res.Stderr))
	}
	return model.Succeeded(fmt.Sprintf("%s finished in %s", spec.Name, time.Since(start).Round(time.Millisecond)))
}

func classpathPaths(entries []model.ClasspathEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// Compiler shells out to a configured executable for its suffix set.
type Compiler struct {
	spec config.CompilerSpec
	log  *logger.Logger
}

var _ plugin.CompilerBackend = (*Compiler)(nil)

// NewCompiler creates a compiler backend from its manifest declaration.
func NewCompiler(spec config.CompilerSpec, log *logger.Logger) *Compiler {
	return &Compiler{spec: spec, log: log}
}

func (c *Compiler) Name() string { return c.spec.Name }

func (c *Compiler) SourceSuffixes() []string {
	return append([]string(nil), c.spec.Suffixes...)
}

// Compile creates the output directory and runs the command from the project directory.
func (c *Compiler) Compile(ctx context.Context, p *project.Project, info model.ActionInfo) model.TaskResult {
	if err := os.MkdirAll(info.OutputDirectory, 0o755); err != nil {
		return model.Failed(fmt.Sprintf("create output directory %s: %v", info.OutputDirectory, err))
	}

	return invoke(ctx, c.log, c.spec.CommandSpec, info.Directory, Vars{
		VarOutput:    {info.OutputDirectory},
		VarClasspath: info.ClasspathPaths(),
		VarSources:   info.SourceFiles,
		VarFlags:     info.Flags,
		VarProject:   {p.Name},
		VarDirectory: {p.Directory},
	})
}

// TestRunner runs a project's compiled tests through a configured executable.
type TestRunner struct {
	spec config.TestRunnerSpec
	log  *logger.Logger
}

var _ plugin.TestRunnerBackend = (*TestRunner)(nil)

// NewTestRunner creates a test runner backend from its manifest declaration.
func NewTestRunner(spec config.TestRunnerSpec, log *logger.Logger) *TestRunner {
	return &TestRunner{spec: spec, log: log}
}

func (r *TestRunner) Name() string { return r.spec.Name }

// Affinity is zero when the runner requires a test dependency the project does not declare.
func (r *TestRunner) Affinity(p *project.Project) int {
	if dep := r.spec.RequiresDependency; dep != "" && !declares(p.TestDependencies, dep) {
		return 0
	}
	if r.spec.Affinity > 0 {
		return r.spec.Affinity
	}
	return DefaultAffinity
}

// Run executes the tests compiled into the project's test classes directory.
// Finding none is a no-op success, with a warning only when tests were explicitly requested.
func (r *TestRunner) Run(ctx context.Context, p *project.Project, classpath []model.ClasspathEntry) model.TaskResult {
	classes, err := testClasses(p.TestClassesDir())
	if err != nil {
		return model.Failed(fmt.Sprintf("scan test classes of %s: %v", p.Name, err))
	}
	if len(classes) == 0 {
		if p.TestDirective {
			r.log.Warnf("couldn't find any test classes for %s", p.Name)
		} else {
			r.log.Debugf("no test classes for %s", p.Name)
		}
		return model.Succeeded("no tests to run")
	}

	return invoke(ctx, r.log, r.spec.CommandSpec, p.Directory, Vars{
		VarOutput:    {p.BuildPath("test-output")},
		VarClasspath: classpathPaths(classpath),
		VarClasses:   classes,
		VarProject:   {p.Name},
		VarDirectory: {p.Directory},
	})
}

func declares(deps []string, name string) bool {
	for _, dep := range deps {
		if strings.Contains(dep, name) {
			return true
		}
	}
	return false
}

// testClasses lists class names found under dir, e.g. "com.acme.FooTest".
// Nested classes are left out.
func testClasses(dir string) ([]string, error) {
	var classes []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") || strings.Contains(d.Name(), "$") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".class")
		classes = append(classes, strings.ReplaceAll(name, "/", "."))
		return nil
	})
	return classes, err
}

// DocGenerator renders documentation through a configured executable.
type DocGenerator struct {
	spec config.DocSpec
	log  *logger.Logger
}

var _ plugin.DocGenerator = (*DocGenerator)(nil)

// NewDocGenerator creates a documentation backend from its manifest declaration.
func NewDocGenerator(spec config.DocSpec, log *logger.Logger) *DocGenerator {
	return &DocGenerator{spec: spec, log: log}
}

func (g *DocGenerator) Name() string { return g.spec.Name }

// Affinity is the declared affinity, or DefaultAffinity.
func (g *DocGenerator) Affinity(_ *project.Project) int {
	if g.spec.Affinity > 0 {
		return g.spec.Affinity
	}
	return DefaultAffinity
}

// GenerateDoc writes documentation for the action's sources into the project's docs directory.
func (g *DocGenerator) GenerateDoc(ctx context.Context, p *project.Project, info model.ActionInfo) model.TaskResult {
	sources := info.SourceFiles
	if len(g.spec.Suffixes) > 0 {
		sources = filterSuffixes(sources, g.spec.Suffixes)
	}
	if len(sources) == 0 {
		g.log.Debugf("%s: no sources to document in %s", g.spec.Name, p.Name)
		return model.Succeeded("no sources to document")
	}

	out := p.BuildPath(project.DocsDirectory, g.spec.Name)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return model.Failed(fmt.Sprintf("create docs directory %s: %v", out, err))
	}

	return invoke(ctx, g.log, g.spec.CommandSpec, info.Directory, Vars{
		VarOutput:    {out},
		VarClasspath: info.ClasspathPaths(),
		VarSources:   sources,
		VarFlags:     info.Flags,
		VarProject:   {p.Name},
		VarDirectory: {p.Directory},
	})
}

func filterSuffixes(files, suffixes []string) []string {
	var out []string
	for _, f := range files {
		for _, s := range suffixes {
			if strings.HasSuffix(f, s) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
