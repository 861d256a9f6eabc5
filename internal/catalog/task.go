// Package catalog holds the tasks plugins declare, including variant expansions,
// and hands each project the subset it can run.
package catalog

import (
	"context"
	"strings"

	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Body is the work a task performs for one project.
type Body func(ctx context.Context, p *project.Project) model.TaskResult

// FingerprintFunc computes a fingerprint for a task's inputs or outputs in a project.
type FingerprintFunc func(p *project.Project) (fingerprint.Fingerprint, error)

// Incremental makes a task skippable when its fingerprints match the last successful run.
type Incremental struct {
	Input  FingerprintFunc
	Output FingerprintFunc
}

// Task is one declared unit of work.
type Task struct {
	Plugin      string
	Name        string
	Variant     project.Variant
	Description string

	// Project restricts the task to one project. Empty means every accepting project.
	Project string

	// RunBefore and RunAfter hold task references: "name", "plugin:name" or a variant
	// qualified name such as "compileDebug".
	RunBefore []string
	RunAfter  []string

	Body        Body
	Incremental *Incremental

	seq int
}

// FullName is the task name qualified by its variant, e.g. "compileFreeDebug".
func (t *Task) FullName() string {
	return t.Variant.TaskName(t.Name)
}

// ID is the task identity within one project, "plugin:fullName".
func (t *Task) ID() string {
	return t.Plugin + ":" + t.FullName()
}

// IsIncremental reports whether the executor may skip the task.
func (t *Task) IsIncremental() bool {
	return t.Incremental != nil && t.Incremental.Input != nil
}

// Sequence is the declaration index used for deterministic tie-breaks.
func (t *Task) Sequence() int {
	return t.seq
}

// BaselineKey keys the task's fingerprint baseline for a project.
func (t *Task) BaselineKey(projectName string) string {
	return projectName + "/" + t.ID()
}

// AppliesTo reports whether the task is visible in the named project.
func (t *Task) AppliesTo(projectName string) bool {
	return t.Project == "" || t.Project == projectName
}

// SplitReference splits "plugin:name" into its parts. Plugin is empty for bare names.
func SplitReference(ref string) (pluginName, name string) {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return "", ref
}
