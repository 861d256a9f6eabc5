package jvm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/engine"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// fakeCompiler "compiles" each source into an empty .class file.
type fakeCompiler struct {
	name     string
	suffixes []string
	fail     bool

	mu    sync.Mutex
	infos []model.ActionInfo
}

func (c *fakeCompiler) Name() string { return c.name }
func (c *fakeCompiler) SourceSuffixes() []string { return c.suffixes }

func (c *fakeCompiler) Compile(_ context.Context, _ *project.Project, info model.ActionInfo) model.TaskResult {
	c.mu.Lock()
	c.infos = append(c.infos, info)
	c.mu.Unlock()

	if c.fail {
		return model.Failed(c.name + ": syntax error")
	}
	if err := os.MkdirAll(info.OutputDirectory, 0o755); err != nil {
		return model.Failed(err.Error())
	}
	for _, src := range info.SourceFiles {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		if err := os.WriteFile(filepath.Join(info.OutputDirectory, base+".class"), nil, 0o644); err != nil {
			return model.Failed(err.Error())
		}
	}
	return model.Succeeded(c.name)
}

func (c *fakeCompiler) lastInfo() model.ActionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infos[len(c.infos)-1]
}

type fakeRunner struct {
	name     string
	affinity int

	mu        sync.Mutex
	classpath []model.ClasspathEntry
	runs      int
}

func (r *fakeRunner) Name() string { return r.name }
func (r *fakeRunner) Affinity(*project.Project) int { return r.affinity }

func (r *fakeRunner) Run(_ context.Context, _ *project.Project, classpath []model.ClasspathEntry) model.TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classpath = classpath
	r.runs++
	return model.Succeeded(r.name)
}

type fakeDoc struct {
	mu   sync.Mutex
	info *model.ActionInfo
}

func (d *fakeDoc) Name() string { return "fakedoc" }
func (d *fakeDoc) Affinity(*project.Project) int { return 1 }

func (d *fakeDoc) GenerateDoc(_ context.Context, _ *project.Project, info model.ActionInfo) model.TaskResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = &info
	return model.Succeeded("documented")
}

// backendPlugin contributes whichever fakes it is given.
type backendPlugin struct {
	name      string
	compilers []plugin.CompilerBackend
	runners   []plugin.TestRunnerBackend
	docs      []plugin.DocGenerator
}

func (b *backendPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{Name: b.name, Version: "1.0.0"}
}
func (b *backendPlugin) Compilers(*project.Project) []plugin.CompilerBackend { return b.compilers }
func (b *backendPlugin) TestRunners() []plugin.TestRunnerBackend { return b.runners }
func (b *backendPlugin) DocGenerators() []plugin.DocGenerator { return b.docs }

type harness struct {
	registry *plugin.Registry
	catalog  *catalog.Catalog
	jvm      *Plugin
	ctx      *plugin.Context
	log      *logger.Logger
}

func newHarness(t *testing.T, log *logger.Logger, plugins ...plugin.Plugin) *harness {
	t.Helper()
	if log == nil {
		log = logger.Nop()
	}

	h := &harness{
		registry: plugin.NewRegistry(log),
		catalog:  catalog.New(log),
		jvm:      New(nil),
		log:      log,
	}
	require.NoError(t, h.registry.Register(h.jvm))
	for _, p := range plugins {
		require.NoError(t, h.registry.Register(p))
	}
	h.ctx = &plugin.Context{Registry: h.registry, Catalog: h.catalog, Logger: log}
	require.NoError(t, h.registry.Initialize(h.ctx))
	return h
}

func (h *harness) apply(t *testing.T, projects ...*project.Project) {
	t.Helper()
	for _, proj := range projects {
		for _, p := range h.registry.Accepting(proj) {
			if applier, ok := p.(plugin.Applier); ok {
				require.NoError(t, applier.Apply(h.ctx, proj))
			}
		}
	}
}

func (h *harness) run(t *testing.T, proj *project.Project, store fingerprint.BaselineStore, targets ...string) *engine.Result {
	t.Helper()

	tasks := h.catalog.TasksFor(proj, func(name string) bool { return h.registry.AcceptsByName(name, proj) })
	graph, err := engine.BuildGraph(tasks)
	require.NoError(t, err)
	plan, err := engine.NewPlan(proj.Name, graph, targets)
	require.NoError(t, err)

	result, err := engine.Execute(&engine.ExecutionContext{
		Project:     proj,
		Parallelism: 2,
		Baselines:   store,
		Logger:      h.log,
	}, plan)
	require.NoError(t, err)
	return result
}

func newProject(t *testing.T, name string) *project.Project {
	t.Helper()
	proj := project.New(name, t.TempDir())
	proj.SourceDirectories = []string{"src/main/java"}
	proj.TestSourceDirectories = []string{"src/test/java"}
	return proj
}

func writeSource(t *testing.T, proj *project.Project, rel, content string) {
	t.Helper()
	path := proj.Path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func status(t *testing.T, result *engine.Result, id string) model.Status {
	t.Helper()
	run, ok := result.Run(id)
	require.True(t, ok, "no run for %s", id)
	return run.Status
}

func TestCompileIsIncremental(t *testing.T) {
	t.Parallel()

	javac := &fakeCompiler{name: "javac", suffixes: []string{".java"}}
	h := newHarness(t, nil, &backendPlugin{name: "javac", compilers: []plugin.CompilerBackend{javac}})
	proj := newProject(t, "core")
	writeSource(t, proj, "src/main/java/A.java", "class A {}")
	h.apply(t, proj)

	store := fingerprint.NewMemoryStore()

	first := h.run(t, proj, store, TaskTest)
	require.False(t, first.Failed())
	require.Equal(t, model.StatusSucceeded, status(t, first, "jvm:compile"))
	require.Equal(t, model.StatusSucceeded, status(t, first, "jvm:test"))
	require.FileExists(t, filepath.Join(proj.ClassesDir(), "A.class"))

	second := h.run(t, proj, store, TaskTest)
	require.Equal(t, model.StatusUpToDate, status(t, second, "jvm:compile"))
	require.Equal(t, model.StatusUpToDate, status(t, second, "jvm:compileTest"))
	require.Equal(t, model.StatusSucceeded, status(t, second, "jvm:test"))

	writeSource(t, proj, "src/main/java/A.java", "class A { int x; }")
	third := h.run(t, proj, store, TaskTest)
	require.Equal(t, model.StatusSucceeded, status(t, third, "jvm:compile"))

	proj.Props().Set(project.PropertyCompilerArgs, []string{"-g"})
	fourth := h.run(t, proj, store, TaskCompile)
	require.Equal(t, model.StatusSucceeded, status(t, fourth, "jvm:compile"))
	require.Equal(t, []string{"-g"}, javac.lastInfo().Flags)
}

func TestCleanForcesRecompile(t *testing.T) {
	t.Parallel()

	javac := &fakeCompiler{name: "javac", suffixes: []string{".java"}}
	h := newHarness(t, nil, &backendPlugin{name: "javac", compilers: []plugin.CompilerBackend{javac}})
	proj := newProject(t, "core")
	writeSource(t, proj, "src/main/java/A.java", "class A {}")
	h.apply(t, proj)
	store := fingerprint.NewMemoryStore()

	h.run(t, proj, store, TaskCompile)
	clean := h.run(t, proj, store, TaskClean)
	require.Equal(t, model.StatusSucceeded, status(t, clean, "jvm:clean"))
	require.NoDirExists(t, proj.BuildPath())

	again := h.run(t, proj, store, TaskCompile)
	require.Equal(t, model.StatusSucceeded, status(t, again, "jvm:compile"))
}

func TestCompileWithoutCompilerIsNoOp(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	proj := newProject(t, "core")
	h.apply(t, proj)

	result := h.run(t, proj, nil, TaskCompile)
	run, ok := result.Run("jvm:compile")
	require.True(t, ok)
	require.Equal(t, model.StatusSucceeded, run.Status)
	require.Equal(t, "no compiler", run.Message)
}

func TestCompileFailureBlocksTests(t *testing.T) {
	t.Parallel()

	good := &fakeCompiler{name: "javac", suffixes: []string{".java"}}
	bad := &fakeCompiler{name: "kotlinc", suffixes: []string{".kt"}, fail: true}
	h := newHarness(t, nil, &backendPlugin{name: "compilers", compilers: []plugin.CompilerBackend{good, bad}})
	proj := newProject(t, "core")
	writeSource(t, proj, "src/main/java/A.java", "class A {}")
	writeSource(t, proj, "src/main/java/B.kt", "class B")
	h.apply(t, proj)

	result := h.run(t, proj, nil, TaskTest)
	require.True(t, result.Failed())
	require.Equal(t, model.StatusFailed, status(t, result, "jvm:compile"))
	require.Equal(t, model.StatusSkipped, status(t, result, "jvm:test"))
	require.Equal(t, "kotlinc: syntax error", result.FirstFailure.Message)
	require.Equal(t, []string{proj.Path("src/main/java/B.kt")}, bad.lastInfo().SourceFiles)
}

func TestVariantTasks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, &backendPlugin{name: "javac", compilers: []plugin.CompilerBackend{
		&fakeCompiler{name: "javac", suffixes: []string{".java"}},
	}})
	proj := newProject(t, "app")
	proj.Variants = project.ExpandVariants(nil, []string{"debug", "release"})
	writeSource(t, proj, "src/main/java/A.java", "class A {}")
	h.apply(t, proj)

	var names []string
	for _, task := range h.catalog.TasksFor(proj, nil) {
		names = append(names, task.FullName())
	}
	require.Subset(t, names, []string{"compileDebug", "compileRelease", "assembleDebug", "assembleRelease"})
	require.NotContains(t, names, "compile")

	result := h.run(t, proj, nil, TaskAssemble)
	require.False(t, result.Failed())
	require.Len(t, result.Runs, 4)
	require.Equal(t, model.StatusSucceeded, status(t, result, "jvm:assembleRelease"))
}

func TestTestSelectsRunnerByAffinity(t *testing.T) {
	t.Parallel()

	none := &fakeRunner{name: "testng", affinity: 0}
	junit := &fakeRunner{name: "junit", affinity: 5}
	h := newHarness(t, nil, &backendPlugin{name: "runners", runners: []plugin.TestRunnerBackend{none, junit}})
	proj := newProject(t, "core")
	h.apply(t, proj)

	result := h.run(t, proj, nil, TaskTest)
	require.False(t, result.Failed())
	require.Equal(t, 0, none.runs)
	require.Equal(t, 1, junit.runs)
	require.Equal(t, proj.TestClassesDir(), junit.classpath[0].Path)
	require.Contains(t, junit.classpath, model.ClasspathEntry{Path: proj.ClassesDir(), ID: "core"})
}

func TestTestWarnsOnlyForExplicitDirective(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	h := newHarness(t, log)
	implicit := newProject(t, "util")
	explicit := newProject(t, "core")
	explicit.TestDirective = true
	h.apply(t, implicit, explicit)

	h.run(t, implicit, nil, TaskTest)
	require.NotContains(t, buf.String(), `"level":"warn"`)

	result := h.run(t, explicit, nil, TaskTest)
	require.False(t, result.Failed())
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), "couldn't find a test runner for project core")
}

func TestDocReplaysCompileAction(t *testing.T) {
	t.Parallel()

	javac := &fakeCompiler{name: "javac", suffixes: []string{".java"}}
	doc := &fakeDoc{}
	h := newHarness(t, nil, &backendPlugin{
		name:      "toolchain",
		compilers: []plugin.CompilerBackend{javac},
		docs:      []plugin.DocGenerator{doc},
	})
	proj := newProject(t, "core")
	proj.Dependencies = []string{"libs/guava.jar"}
	writeSource(t, proj, "src/main/java/A.java", "class A {}")
	h.apply(t, proj)

	result := h.run(t, proj, nil, TaskDoc)
	require.False(t, result.Failed())
	require.NotNil(t, doc.info)
	require.Equal(t, javac.lastInfo(), *doc.info)
}

func TestDocWithoutGeneratorSucceeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	proj := newProject(t, "core")
	h.apply(t, proj)

	result := h.run(t, proj, nil, TaskDoc)
	run, ok := result.Run("jvm:doc")
	require.True(t, ok)
	require.Equal(t, model.StatusSucceeded, run.Status)
	require.Equal(t, "no doc generator", run.Message)
}

func TestDependentProjectClasspath(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	util := newProject(t, "util")
	app := newProject(t, "app")
	app.DependsOn = []string{"util", "external"}
	h.apply(t, util, app)

	require.Equal(t, []model.ClasspathEntry{{Path: util.ClassesDir(), ID: "util"}}, h.jvm.ClasspathEntries(app, plugin.ScopeCompile))
	require.Equal(t, []string{"util", "external"}, app.Props().Strings(project.PropertyDependentProjects))

	testCP := h.jvm.ClasspathEntries(app, plugin.ScopeTest)
	require.Equal(t, model.ClasspathEntry{Path: app.ClassesDir(), ID: "app"}, testCP[0])
}
