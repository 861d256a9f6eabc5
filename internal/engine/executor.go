package engine

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

const tracerName = "github.com/alexisbeaulieu97/foundry/internal/engine"

// Result is the outcome of executing one project's plan.
type Result struct {
	Project string
	// Runs holds terminal tasks in the order they terminated.
	Runs []model.TaskRun
	// FirstFailure is the earliest failed task in plan order, if any.
	FirstFailure *model.TaskRun
	// Cancelled is set when the context ended before every task was dispatched.
	Cancelled bool
}

// Failed reports whether any task failed or the run was cut short.
func (r *Result) Failed() bool {
	return r != nil && (r.FirstFailure != nil || r.Cancelled)
}

// Run returns the terminal record of a task.
func (r *Result) Run(taskID string) (model.TaskRun, bool) {
	if r == nil {
		return model.TaskRun{}, false
	}
	for _, run := range r.Runs {
		if run.TaskID == taskID {
			return run, true
		}
	}
	return model.TaskRun{}, false
}

type completion struct {
	index int
	run   model.TaskRun
}

// Execute runs plan. A task is dispatched once all its predecessors in the plan
// have succeeded or were up to date; the earliest ready task in plan order goes
// first, and at most Parallelism bodies run at once. When a task fails, every task
// reachable from it is skipped while unrelated tasks keep going. Cancelling the
// context stops dispatching; bodies already running are waited for.
func Execute(execCtx *ExecutionContext, plan *Plan) (*Result, error) {
	if execCtx == nil {
		return nil, foundryerrors.NewExecutionError("", fmt.Errorf("execution context is nil"))
	}
	if execCtx.Project == nil {
		return nil, foundryerrors.NewExecutionError("", fmt.Errorf("execution context project is nil"))
	}
	if plan == nil {
		return nil, foundryerrors.NewExecutionError("", fmt.Errorf("execution plan is nil"))
	}

	ctx := execCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	width := execCtx.Parallelism
	if width < 1 {
		width = 1
	}

	tasks := plan.Tasks
	position := make(map[*Node]int, len(tasks))
	for i, n := range tasks {
		position[n] = i
	}

	remaining := make([]int, len(tasks))
	for i, n := range tasks {
		for _, dep := range n.DependsOn {
			if _, ok := position[dep]; ok {
				remaining[i]++
			}
		}
	}

	states := make([]model.Status, len(tasks))
	for i := range states {
		states[i] = model.StatusPending
	}
	runs := make([]*model.TaskRun, len(tasks))
	result := &Result{Project: execCtx.Project.Name}

	finish := func(index int, run model.TaskRun) {
		states[index] = run.Status
		runs[index] = &run
		result.Runs = append(result.Runs, run)
		execCtx.report(run)
	}

	skipDescendants := func(from int) {
		queue := []*Node{tasks[from]}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, dependent := range current.Dependents {
				idx, ok := position[dependent]
				if !ok || states[idx] != model.StatusPending {
					continue
				}
				finish(idx, model.TaskRun{
					Project:  execCtx.Project.Name,
					TaskID:   dependent.ID,
					Name:     dependent.Task.FullName(),
					Status:   model.StatusSkipped,
					Message:  fmt.Sprintf("not run: %s failed", tasks[from].ID),
					Finished: time.Now(),
				})
				execCtx.Metrics.TaskSkipped(execCtx.Project.Name)
				if execCtx.Observer != nil {
					execCtx.Observer.OnTaskFinish(*runs[idx])
				}
				queue = append(queue, dependent)
			}
		}
	}

	nextReady := func() int {
		for i := range tasks {
			if states[i] == model.StatusPending && remaining[i] == 0 {
				return i
			}
		}
		return -1
	}

	completions := make(chan completion, len(tasks))
	var group errgroup.Group
	group.SetLimit(width)

	// Bodies are opaque blocking units: cancellation stops dispatch, not running work.
	bodyCtx := context.WithoutCancel(ctx)

	inflight := 0
	for {
		for ctx.Err() == nil && inflight < width {
			idx := nextReady()
			if idx < 0 {
				break
			}
			states[idx] = model.StatusRunning
			inflight++
			node := tasks[idx]
			group.Go(func() error {
				completions <- completion{index: idx, run: execCtx.runTask(bodyCtx, node)}
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		done := <-completions
		inflight--
		finish(done.index, done.run)

		if done.run.Status.IsSuccess() {
			for _, dependent := range tasks[done.index].Dependents {
				if idx, ok := position[dependent]; ok {
					remaining[idx]--
				}
			}
			continue
		}
		skipDescendants(done.index)
	}
	_ = group.Wait()

	for i, run := range runs {
		if run != nil && run.Status == model.StatusFailed {
			result.FirstFailure = runs[i]
			break
		}
	}

	if err := ctx.Err(); err != nil {
		for _, state := range states {
			if state == model.StatusPending {
				result.Cancelled = true
				break
			}
		}
		if result.Cancelled {
			execCtx.Logger.Warnf("project %s: run interrupted, %d of %d tasks finished", execCtx.Project.Name, len(result.Runs), len(tasks))
			return result, err
		}
	}
	return result, nil
}

// runTask applies the incremental decision and runs the body of node.
func (execCtx *ExecutionContext) runTask(ctx context.Context, node *Node) (run model.TaskRun) {
	task := node.Task
	p := execCtx.Project
	log := execCtx.Logger.ForTask(p.Name, node.ID)

	tracer := execCtx.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "task "+node.ID, trace.WithAttributes(
		attribute.String("foundry.project", p.Name),
		attribute.String("foundry.task", node.ID),
		attribute.Bool("foundry.incremental", task.IsIncremental()),
	))

	start := time.Now()
	run = model.TaskRun{Project: p.Name, TaskID: node.ID, Name: task.FullName(), Status: model.StatusRunning}
	if execCtx.Observer != nil {
		execCtx.Observer.OnTaskStart(p.Name, node.ID)
	}
	execCtx.Metrics.TaskStarted()

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Debugf("panic stack: %s", debug.Stack())
			run.Status = model.StatusFailed
			run.Message = fmt.Sprintf("task panicked: %v", recovered)
		}
		run.Duration = time.Since(start)
		run.Finished = time.Now()

		span.SetAttributes(attribute.String("foundry.status", run.Status.Label()))
		if run.Status == model.StatusFailed {
			span.SetStatus(codes.Error, run.Message)
			log.Warnf("task failed: %s", run.Message)
		}
		span.End()

		execCtx.Metrics.TaskFinished(task.Plugin, p.Name, run.Status.Label(), run.Duration)
		if execCtx.Observer != nil {
			execCtx.Observer.OnTaskFinish(run)
		}
	}()

	var input fingerprint.Fingerprint
	if task.IsIncremental() {
		var err error
		input, err = task.Incremental.Input(p)
		if err != nil {
			run.Status = model.StatusFailed
			run.Message = fmt.Sprintf("fingerprint inputs: %v", err)
			return run
		}

		upToDate, err := execCtx.upToDate(node, input)
		if err != nil {
			run.Status = model.StatusFailed
			run.Message = fmt.Sprintf("fingerprint outputs: %v", err)
			return run
		}
		if upToDate {
			log.Debugf("inputs unchanged (%s), skipping body", input.Short())
			run.Status = model.StatusUpToDate
			return run
		}
	}

	res := task.Body(ctx, p)
	run.Message = res.Message
	if !res.Success {
		run.Status = model.StatusFailed
		return run
	}
	run.Status = model.StatusSucceeded

	if task.IsIncremental() {
		output, err := outputFingerprint(node, execCtx)
		if err != nil {
			run.Status = model.StatusFailed
			run.Message = fmt.Sprintf("fingerprint outputs: %v", err)
			return run
		}
		if execCtx.Baselines != nil {
			baseline := fingerprint.Baseline{Input: input, Output: output}
			if err := execCtx.Baselines.Put(task.BaselineKey(p.Name), baseline); err != nil {
				log.Warnf("record baseline: %v", err)
			}
		}
	}
	return run
}

// upToDate is true when a baseline exists with the same input fingerprint and the
// outputs still match what the last successful run produced.
func (execCtx *ExecutionContext) upToDate(node *Node, input fingerprint.Fingerprint) (bool, error) {
	if execCtx.Baselines == nil {
		return false, nil
	}
	baseline, ok, err := execCtx.Baselines.Get(node.Task.BaselineKey(execCtx.Project.Name))
	if err != nil {
		execCtx.Logger.Warnf("read baseline for %s: %v", node.ID, err)
		return false, nil
	}
	if !ok || baseline.Input != input {
		return false, nil
	}

	output, err := outputFingerprint(node, execCtx)
	if err != nil {
		return false, err
	}
	return output == baseline.Output, nil
}

func outputFingerprint(node *Node, execCtx *ExecutionContext) (fingerprint.Fingerprint, error) {
	if node.Task.Incremental.Output == nil {
		return "", nil
	}
	return node.Task.Incremental.Output(execCtx.Project)
}

func (execCtx *ExecutionContext) report(run model.TaskRun) {
	line := fmt.Sprintf("%s\t%s\t%d", run.TaskID, run.Status.Label(), run.Duration.Milliseconds())
	execCtx.Logger.Debug(line)
	if execCtx.Report == nil {
		return
	}
	_, _ = io.WriteString(execCtx.Report, line+"\n")
}
