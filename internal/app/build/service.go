// Package build coordinates a whole build: it orders projects, lets plugins apply
// themselves, plans every requested target, then runs the plans project by project.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/engine"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/metrics"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// Summary lines printed at the end of a build.
const (
	SummarySuccess = "BUILD SUCCESSFUL"
	SummaryFailure = "BUILD FAILED"
)

// Options configures a Service.
type Options struct {
	// Parallelism caps concurrently running tasks within a project.
	Parallelism int
	Baselines   fingerprint.BaselineStore
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	Observer    engine.Observer
	// Output receives per-task report lines and the final summary.
	Output io.Writer
}

// Service runs targets over projects with a fixed set of plugins.
type Service struct {
	registry *plugin.Registry
	catalog  *catalog.Catalog
	opts     Options
	log      *logger.Logger

	mu      sync.Mutex
	applied map[string]bool
}

// NewService registers plugins in order, lets them declare their static tasks,
// and freezes the registry.
func NewService(plugins []plugin.Plugin, opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	registry := plugin.NewRegistry(log)
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	s := &Service{
		registry: registry,
		catalog:  catalog.New(log),
		opts:     opts,
		log:      log,
		applied:  make(map[string]bool),
	}
	if err := registry.Initialize(s.pluginContext()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) pluginContext() *plugin.Context {
	return &plugin.Context{Registry: s.registry, Catalog: s.catalog, Logger: s.log}
}

// Registry exposes the frozen plugin registry.
func (s *Service) Registry() *plugin.Registry {
	return s.registry
}

// ListTasks applies plugins to projects and returns every declared task grouped by plugin.
func (s *Service) ListTasks(projects []*project.Project) ([]catalog.PluginTasks, error) {
	for _, p := range projects {
		if err := s.apply(p); err != nil {
			return nil, err
		}
	}
	return s.catalog.List(), nil
}

// apply runs every accepting plugin's Apply once per project.
func (s *Service) apply(p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[p.Name] {
		return nil
	}
	for _, pl := range s.registry.Accepting(p) {
		applier, ok := pl.(plugin.Applier)
		if !ok {
			continue
		}
		if err := applier.Apply(s.pluginContext(), p); err != nil {
			return fmt.Errorf("apply plugin %s to project %s: %w", plugin.NameOf(pl), p.Name, err)
		}
	}
	s.applied[p.Name] = true
	return nil
}

// Prepared is the validated, ordered set of plans for one build.
type Prepared struct {
	Targets []string
	// Projects and Plans are aligned; projects defining none of the targets are left out.
	Projects []*project.Project
	Plans    []*engine.Plan

	// Workspace is every project of the build in dependency order, planned or not.
	Workspace []*project.Project
}

// TaskCount is the number of tasks across every plan.
func (p *Prepared) TaskCount() int {
	n := 0
	for _, plan := range p.Plans {
		n += len(plan.Tasks)
	}
	return n
}

// Prepare orders projects by their depends-on edges and plans targets in each.
// Every configuration problem surfaces here, before any task runs.
func (s *Service) Prepare(targets []string, projects []*project.Project) (*Prepared, error) {
	if len(targets) == 0 {
		return nil, foundryerrors.NewConfigurationError(foundryerrors.KindUnknownTarget, "", "no targets requested")
	}

	ordered, err := project.Order(projects)
	if err != nil {
		return nil, err
	}

	prepared := &Prepared{Targets: append([]string(nil), targets...), Workspace: ordered}
	found := make(map[string]bool, len(targets))
	for _, p := range ordered {
		p := p
		if err := s.apply(p); err != nil {
			return nil, err
		}

		tasks := s.catalog.TasksFor(p, func(name string) bool { return s.registry.AcceptsByName(name, p) })
		graph, err := engine.BuildGraph(tasks)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}

		var local []string
		for _, target := range targets {
			if graph.HasTarget(target) {
				local = append(local, target)
				found[target] = true
			}
		}
		if len(local) == 0 {
			s.log.Debugf("project %s defines none of the targets", p.Name)
			continue
		}

		plan, err := engine.NewPlan(p.Name, graph, local)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
		prepared.Projects = append(prepared.Projects, p)
		prepared.Plans = append(prepared.Plans, plan)
	}

	for _, target := range targets {
		if !found[target] {
			return nil, foundryerrors.NewConfigurationError(foundryerrors.KindUnknownTarget, target, "no project defines this task")
		}
	}
	return prepared, nil
}

// Outcome summarizes one build.
type Outcome struct {
	RunID    string
	Results  []*engine.Result
	Success  bool
	Duration time.Duration
	// Err is set when the build stopped early, e.g. on cancellation.
	Err error
}

// Execute runs prepared plans project by project. A project whose dependency
// failed has all of its tasks marked skipped.
func (s *Service) Execute(ctx context.Context, prepared *Prepared) *Outcome {
	start := time.Now()
	outcome := &Outcome{RunID: uuid.NewString(), Success: true}
	log := s.log.With(logger.FieldRunID, outcome.RunID)
	log.Infof("building %s in %d projects", strings.Join(prepared.Targets, ", "), len(prepared.Projects))

	broken := make(map[string]bool)
	for i, p := range prepared.Projects {
		plan := prepared.Plans[i]

		if dep, blocked := blockedBy(prepared.workspace(), p, broken); blocked {
			log.Warnf("skipping project %s because %s failed", p.Name, dep)
			outcome.Results = append(outcome.Results, s.skipProject(p, plan))
			broken[p.Name] = true
			outcome.Success = false
			continue
		}

		result, err := engine.Execute(&engine.ExecutionContext{
			Project:     p,
			Parallelism: s.opts.Parallelism,
			Baselines:   s.opts.Baselines,
			Logger:      log,
			Metrics:     s.opts.Metrics,
			Tracer:      s.opts.Tracer,
			Observer:    s.opts.Observer,
			Report:      s.opts.Output,
			Context:     ctx,
		}, plan)
		if result != nil {
			outcome.Results = append(outcome.Results, result)
		}
		if err != nil {
			outcome.Success = false
			outcome.Err = err
			break
		}
		if result.Failed() {
			broken[p.Name] = true
			outcome.Success = false
		}
	}

	outcome.Duration = time.Since(start)
	s.opts.Metrics.BuildFinished(outcome.Success)
	return outcome
}

func (p *Prepared) workspace() []*project.Project {
	if len(p.Workspace) > 0 {
		return p.Workspace
	}
	return p.Projects
}

// blockedBy returns the failed project p depends on, directly or through projects
// that had nothing to run.
func blockedBy(workspace []*project.Project, p *project.Project, broken map[string]bool) (string, bool) {
	for _, dep := range project.TransitiveDependencies(workspace, p.Name) {
		if broken[dep] {
			return dep, true
		}
	}
	return "", false
}

func (s *Service) skipProject(p *project.Project, plan *engine.Plan) *engine.Result {
	result := &engine.Result{Project: p.Name}
	for _, node := range plan.Tasks {
		run := model.TaskRun{
			Project:  p.Name,
			TaskID:   node.ID,
			Name:     node.Task.FullName(),
			Status:   model.StatusSkipped,
			Message:  "dependency project failed",
			Finished: time.Now(),
		}
		result.Runs = append(result.Runs, run)
		s.opts.Metrics.TaskSkipped(p.Name)
		if s.opts.Observer != nil {
			s.opts.Observer.OnTaskFinish(run)
		}
		if s.opts.Output != nil {
			fmt.Fprintf(s.opts.Output, "%s\t%s\t0\n", run.TaskID, run.Status.Label())
		}
	}
	return result
}

// RunTargets prepares and executes targets, prints the summary, and returns the
// process exit code: 0 on success, 1 otherwise.
func (s *Service) RunTargets(ctx context.Context, targets []string, projects []*project.Project) int {
	prepared, err := s.Prepare(targets, projects)
	if err != nil {
		s.log.Error(err, "build configuration failed")
		s.printf("%s\n%s\n", SummaryFailure, err)
		s.opts.Metrics.BuildFinished(false)
		return 1
	}

	outcome := s.Execute(ctx, prepared)
	s.PrintSummary(outcome)
	if outcome.Success {
		return 0
	}
	return 1
}

// PrintSummary writes the failures, if any, and the final summary line.
func (s *Service) PrintSummary(outcome *Outcome) {
	for _, result := range outcome.Results {
		if result.FirstFailure != nil {
			s.printf("%s: task %s failed: %s\n", result.Project, result.FirstFailure.TaskID, result.FirstFailure.Message)
		}
	}
	if outcome.Err != nil {
		if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
			s.printf("build interrupted: %v\n", outcome.Err)
		} else {
			s.printf("%v\n", outcome.Err)
		}
	}

	summary := SummarySuccess
	if !outcome.Success {
		summary = SummaryFailure
	}
	s.printf("%s (%s)\n", summary, outcome.Duration.Round(time.Millisecond))
}

// DryRun prints what each project would run without running anything.
func (s *Service) DryRun(prepared *Prepared) {
	for _, plan := range prepared.Plans {
		s.printf("%s\n", plan.String())
	}
}

func (s *Service) printf(format string, args ...any) {
	if s.opts.Output == nil {
		return
	}
	fmt.Fprintf(s.opts.Output, format, args...)
}
