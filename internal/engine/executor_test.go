package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/metrics"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

func planFor(t *testing.T, tasks []*catalog.Task, targets ...string) *Plan {
	t.Helper()
	g, err := BuildGraph(tasks)
	require.NoError(t, err)
	plan, err := NewPlan("p", g, targets)
	require.NoError(t, err)
	return plan
}

func statuses(result *Result) map[string]string {
	out := make(map[string]string, len(result.Runs))
	for _, run := range result.Runs {
		out[run.TaskID] = run.Status.Label()
	}
	return out
}

func TestExecuteSequentialFollowsPlanOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := planFor(t, declare(t, rec,
		taskSpec{name: "w"},
		taskSpec{name: "z", runAfter: []string{"y"}},
		taskSpec{name: "y", runAfter: []string{"x"}},
		taskSpec{name: "x"},
	), "z")

	result, err := Execute(&ExecutionContext{Project: project.New("p", t.TempDir()), Parallelism: 1}, plan)
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.Equal(t, []string{"x", "y", "z"}, rec.order())
	require.Equal(t, map[string]string{"core:x": "ran", "core:y": "ran", "core:z": "ran"}, statuses(result))
}

func TestExecuteFailureIsolation(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := planFor(t, declare(t, rec,
		taskSpec{name: "b", fail: true},
		taskSpec{name: "c", runAfter: []string{"b"}},
		taskSpec{name: "e", runAfter: []string{"c"}},
		taskSpec{name: "d"},
	), "e", "d")

	for _, width := range []int{1, 4} {
		rec.calls = nil
		result, err := Execute(&ExecutionContext{Project: project.New("p", t.TempDir()), Parallelism: width}, plan)
		require.NoError(t, err)

		require.True(t, result.Failed())
		require.Equal(t, "core:b", result.FirstFailure.TaskID)
		require.Equal(t, "b broke", result.FirstFailure.Message)
		require.ElementsMatch(t, []string{"b", "d"}, rec.order())
		require.Equal(t, map[string]string{
			"core:b": "failed",
			"core:c": "skipped",
			"core:e": "skipped",
			"core:d": "ran",
		}, statuses(result))
	}
}

func TestExecuteFirstFailureUsesPlanOrder(t *testing.T) {
	t.Parallel()

	plan := planFor(t, declare(t, &recorder{},
		taskSpec{name: "a", fail: true},
		taskSpec{name: "b", fail: true},
	), "a", "b")

	result, err := Execute(&ExecutionContext{Project: project.New("p", t.TempDir()), Parallelism: 2}, plan)
	require.NoError(t, err)
	require.Equal(t, "core:a", result.FirstFailure.TaskID)
}

func TestExecuteParallelRespectsEdges(t *testing.T) {
	t.Parallel()

	var running, peak int32
	var mu sync.Mutex
	finished := map[string]bool{}
	violations := 0

	c := catalog.New(nil)
	body := func(name string, after ...string) catalog.Body {
		return func(context.Context, *project.Project) model.TaskResult {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			mu.Lock()
			for _, dep := range after {
				if !finished[dep] {
					violations++
				}
			}
			mu.Unlock()

			time.Sleep(30 * time.Millisecond)

			mu.Lock()
			finished[name] = true
			mu.Unlock()
			atomic.AddInt32(&running, -1)
			return model.Succeeded("")
		}
	}

	for _, task := range []catalog.Task{
		{Plugin: "core", Name: "a", Body: body("a")},
		{Plugin: "core", Name: "b", Body: body("b")},
		{Plugin: "core", Name: "c", Body: body("c")},
		{Plugin: "core", Name: "d", RunAfter: []string{"a", "b", "c"}, Body: body("d", "a", "b", "c")},
	} {
		_, err := c.DeclareTask(task)
		require.NoError(t, err)
	}
	p := project.New("p", t.TempDir())
	plan := planFor(t, c.TasksFor(p, nil), "d")

	result, err := Execute(&ExecutionContext{Project: p, Parallelism: 2}, plan)
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.Zero(t, violations)
	require.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestExecuteReportLines(t *testing.T) {
	t.Parallel()

	plan := planFor(t, declare(t, &recorder{},
		taskSpec{name: "compile", fail: true},
		taskSpec{name: "test", runAfter: []string{"compile"}},
	), "test")

	buf := &bytes.Buffer{}
	_, err := Execute(&ExecutionContext{Project: project.New("p", t.TempDir()), Report: buf}, plan)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 3)
	require.Equal(t, "core:compile", fields[0])
	require.Equal(t, "failed", fields[1])
	require.Equal(t, "core:test\tskipped\t0", lines[1])
}

func TestExecuteRecoversPanics(t *testing.T) {
	t.Parallel()

	c := catalog.New(nil)
	_, err := c.DeclareTask(catalog.Task{Plugin: "core", Name: "explode", Body: func(context.Context, *project.Project) model.TaskResult {
		panic("boom")
	}})
	require.NoError(t, err)
	p := project.New("p", t.TempDir())

	result, err := Execute(&ExecutionContext{Project: p}, planFor(t, c.TasksFor(p, nil), "explode"))
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, result.FirstFailure.Status)
	require.Contains(t, result.FirstFailure.Message, "boom")
}

func TestExecuteCancellationStopsDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bodyCtxErr error
	c := catalog.New(nil)
	_, err := c.DeclareTask(catalog.Task{Plugin: "core", Name: "first", Body: func(bodyCtx context.Context, _ *project.Project) model.TaskResult {
		cancel()
		bodyCtxErr = bodyCtx.Err()
		return model.Succeeded("")
	}})
	require.NoError(t, err)
	_, err = c.DeclareTask(catalog.Task{Plugin: "core", Name: "second", RunAfter: []string{"first"}, Body: func(context.Context, *project.Project) model.TaskResult {
		t.Error("second must not run after cancellation")
		return model.Succeeded("")
	}})
	require.NoError(t, err)

	p := project.New("p", t.TempDir())
	result, err := Execute(&ExecutionContext{Project: p, Context: ctx}, planFor(t, c.TasksFor(p, nil), "second"))
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, result.Cancelled)
	require.True(t, result.Failed())
	require.NoError(t, bodyCtxErr)

	run, ok := result.Run("core:first")
	require.True(t, ok)
	require.Equal(t, model.StatusSucceeded, run.Status)
	_, ok = result.Run("core:second")
	require.False(t, ok)
}

type observer struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (o *observer) OnTaskStart(_, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *observer) OnTaskFinish(run model.TaskRun) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, run.TaskID+"="+run.Status.Label())
}

func TestExecuteNotifiesObserverAndMetrics(t *testing.T) {
	t.Parallel()

	obs := &observer{}
	plan := planFor(t, declare(t, &recorder{},
		taskSpec{name: "a"},
		taskSpec{name: "b", runAfter: []string{"a"}},
	), "b")

	_, err := Execute(&ExecutionContext{
		Project:  project.New("p", t.TempDir()),
		Observer: obs,
		Metrics:  metrics.MustNewMetrics(prometheus.NewRegistry()),
	}, plan)
	require.NoError(t, err)
	require.Equal(t, []string{"core:a", "core:b"}, obs.started)
	require.Equal(t, []string{"core:a=ran", "core:b=ran"}, obs.finished)
}

func TestExecuteReportsSkippedTasksToObserver(t *testing.T) {
	t.Parallel()

	obs := &observer{}
	plan := planFor(t, declare(t, &recorder{},
		taskSpec{name: "a", fail: true},
		taskSpec{name: "b", runAfter: []string{"a"}},
	), "b")

	result, err := Execute(&ExecutionContext{Project: project.New("p", t.TempDir()), Observer: obs}, plan)
	require.NoError(t, err)
	require.True(t, result.Failed())
	require.Equal(t, []string{"core:a"}, obs.started)
	require.Equal(t, []string{"core:a=failed", "core:b=skipped"}, obs.finished)
}

func TestExecuteRejectsMissingInputs(t *testing.T) {
	t.Parallel()

	_, err := Execute(nil, &Plan{})
	require.Error(t, err)
	_, err = Execute(&ExecutionContext{}, &Plan{})
	require.Error(t, err)
	_, err = Execute(&ExecutionContext{Project: project.New("p", "/tmp")}, nil)
	require.Error(t, err)
}

// scenario declares compile (incremental over src), test after compile, and clean.
type scenario struct {
	dir      string
	compiles int32
	tests    int32
	tasks    []*catalog.Task
}

func newScenario(t *testing.T) *scenario {
	t.Helper()

	s := &scenario{dir: t.TempDir()}
	require.NoError(t, os.MkdirAll(filepath.Join(s.dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "src", "A.src"), []byte("class A"), 0o644))

	c := catalog.New(nil)
	_, err := c.DeclareIncrementalTask(catalog.Task{
		Plugin: "core",
		Name:   "compile",
		Body: func(_ context.Context, p *project.Project) model.TaskResult {
			atomic.AddInt32(&s.compiles, 1)
			if err := os.MkdirAll(p.ClassesDir(), 0o755); err != nil {
				return model.Failed(err.Error())
			}
			if err := os.WriteFile(filepath.Join(p.ClassesDir(), "A.class"), []byte("bytes"), 0o644); err != nil {
				return model.Failed(err.Error())
			}
			return model.Succeeded("")
		},
	}, catalog.Incremental{
		Input: func(p *project.Project) (fingerprint.Fingerprint, error) {
			return fingerprint.Directories(p.Path("src"))
		},
		Output: func(p *project.Project) (fingerprint.Fingerprint, error) {
			return fingerprint.Directories(p.ClassesDir())
		},
	})
	require.NoError(t, err)

	_, err = c.DeclareTask(catalog.Task{Plugin: "core", Name: "test", RunAfter: []string{"compile"}, Body: func(context.Context, *project.Project) model.TaskResult {
		atomic.AddInt32(&s.tests, 1)
		return model.Succeeded("")
	}})
	require.NoError(t, err)

	_, err = c.DeclareTask(catalog.Task{Plugin: "core", Name: "clean", Body: func(_ context.Context, p *project.Project) model.TaskResult {
		if err := os.RemoveAll(p.BuildPath()); err != nil {
			return model.Failed(err.Error())
		}
		return model.Succeeded("")
	}})
	require.NoError(t, err)

	s.tasks = c.TasksFor(project.New("p", s.dir), nil)
	return s
}

func (s *scenario) run(t *testing.T, store fingerprint.BaselineStore, target string) map[string]string {
	t.Helper()
	result, err := Execute(&ExecutionContext{Project: project.New("p", s.dir), Baselines: store}, planFor(t, s.tasks, target))
	require.NoError(t, err)
	require.False(t, result.Failed())
	return statuses(result)
}

func TestCompileTestCleanScenario(t *testing.T) {
	t.Parallel()

	s := newScenario(t)
	store := fingerprint.NewMemoryStore()

	require.Equal(t, map[string]string{"core:compile": "ran", "core:test": "ran"}, s.run(t, store, "test"))
	require.Equal(t, map[string]string{"core:compile": "up-to-date", "core:test": "ran"}, s.run(t, store, "test"))
	require.Equal(t, int32(1), atomic.LoadInt32(&s.compiles))

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "src", "A.src"), []byte("class B"), 0o644))
	require.Equal(t, map[string]string{"core:compile": "ran", "core:test": "ran"}, s.run(t, store, "test"))
	require.Equal(t, int32(2), atomic.LoadInt32(&s.compiles))
	require.Equal(t, int32(3), atomic.LoadInt32(&s.tests))

	// Deleting outputs makes compile stale even though inputs did not change.
	require.Equal(t, map[string]string{"core:clean": "ran"}, s.run(t, store, "clean"))
	require.Equal(t, map[string]string{"core:compile": "ran", "core:test": "ran"}, s.run(t, store, "test"))
	require.Equal(t, int32(3), atomic.LoadInt32(&s.compiles))
}

func TestIncrementalBaselinesSurviveRestart(t *testing.T) {
	t.Parallel()

	s := newScenario(t)
	path := filepath.Join(t.TempDir(), "baselines.yaml")

	store, err := fingerprint.NewFileStore(path)
	require.NoError(t, err)
	require.Equal(t, "ran", s.run(t, store, "compile")["core:compile"])

	reopened, err := fingerprint.NewFileStore(path)
	require.NoError(t, err)
	require.Equal(t, "up-to-date", s.run(t, reopened, "compile")["core:compile"])
}

func TestIncrementalWithoutStoreAlwaysRuns(t *testing.T) {
	t.Parallel()

	s := newScenario(t)
	s.run(t, nil, "compile")
	s.run(t, nil, "compile")
	require.Equal(t, int32(2), atomic.LoadInt32(&s.compiles))
}

type failingStore struct{ fingerprint.MemoryStore }

func (f *failingStore) Put(string, fingerprint.Baseline) error {
	return errors.New("disk full")
}

func TestBaselineWriteErrorDoesNotFailTask(t *testing.T) {
	t.Parallel()

	s := newScenario(t)
	require.Equal(t, "ran", s.run(t, &failingStore{}, "compile")["core:compile"])
}

func TestFingerprintErrorFailsOnlyThatTask(t *testing.T) {
	t.Parallel()

	c := catalog.New(nil)
	_, err := c.DeclareIncrementalTask(catalog.Task{Plugin: "core", Name: "compile", Body: func(context.Context, *project.Project) model.TaskResult {
		t.Error("body must not run when inputs cannot be fingerprinted")
		return model.Succeeded("")
	}}, catalog.Incremental{Input: func(*project.Project) (fingerprint.Fingerprint, error) {
		return "", errors.New("permission denied")
	}})
	require.NoError(t, err)
	_, err = c.DeclareTask(catalog.Task{Plugin: "core", Name: "lint", Body: func(context.Context, *project.Project) model.TaskResult {
		return model.Succeeded("")
	}})
	require.NoError(t, err)

	p := project.New("p", t.TempDir())
	result, err := Execute(&ExecutionContext{Project: p, Baselines: fingerprint.NewMemoryStore()}, planFor(t, c.TasksFor(p, nil), "compile", "lint"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"core:compile": "failed", "core:lint": "ran"}, statuses(result))
	require.Contains(t, result.FirstFailure.Message, "permission denied")
}
