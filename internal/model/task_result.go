package model

import (
	"time"

	"github.com/alexisbeaulieu97/foundry/internal/logger"
)

// Status is the lifecycle state of a task within one run.
type Status string

const (
	// StatusPending indicates a task has not been dispatched yet.
	StatusPending Status = "pending"
	// StatusRunning indicates a task body is executing.
	StatusRunning Status = "running"
	// StatusSucceeded marks a task whose body ran and succeeded.
	StatusSucceeded Status = "succeeded"
	// StatusUpToDate marks an incremental task skipped because its fingerprints were unchanged.
	StatusUpToDate Status = "up-to-date"
	// StatusFailed marks a task whose body ran and failed.
	StatusFailed Status = "failed"
	// StatusSkipped marks a task never run because an upstream task failed.
	StatusSkipped Status = "skipped"
)

// IsTerminal reports whether the status is final for a run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusUpToDate, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether successors may run after a task in this status.
func (s Status) IsSuccess() bool {
	return s == StatusSucceeded || s == StatusUpToDate
}

// Label is the word used in per-task report lines.
func (s Status) Label() string {
	switch s {
	case StatusSucceeded:
		return "ran"
	case StatusUpToDate:
		return "up-to-date"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return string(s)
	}
}

// TaskResult is what a task body reports back to the executor.
type TaskResult struct {
	Success bool
	Message string
}

// Succeeded returns a successful result carrying an optional message.
func Succeeded(message string) TaskResult {
	return TaskResult{Success: true, Message: message}
}

// Failed returns a failed result carrying a diagnostic.
func Failed(message string) TaskResult {
	return TaskResult{Success: false, Message: message}
}

// AggregateResults folds the results of several backend contributors into one.
// The first failure wins; otherwise the first result is returned; with no results
// the outcome is a synthetic success. Every failure is logged, not only the first.
func AggregateResults(log *logger.Logger, results []TaskResult) TaskResult {
	var first *TaskResult
	for i := range results {
		res := results[i]
		if res.Success {
			continue
		}
		if first == nil {
			first = &results[i]
			continue
		}
		log.Warnf("additional failure: %s", res.Message)
	}
	if first != nil {
		return *first
	}
	if len(results) > 0 {
		return results[0]
	}
	return Succeeded("")
}

// TaskRun captures the terminal outcome of a task for reporting.
type TaskRun struct {
	Project  string
	TaskID   string
	Name     string
	Status   Status
	Message  string
	Duration time.Duration
	Finished time.Time
}
