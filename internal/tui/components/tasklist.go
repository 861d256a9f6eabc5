package components

import (
	"github.com/alexisbeaulieu97/foundry/internal/model"
)

// TaskEntry represents a single task for rendering.
type TaskEntry struct {
	Key string
	Run model.TaskRun
}

// TaskList renders tasks with their current status.
type TaskList struct {
	entries []TaskEntry
}

// NewTaskList constructs a task list component.
func NewTaskList(order []string, tasks map[string]model.TaskRun) TaskList {
	entries := make([]TaskEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, TaskEntry{Key: k, Run: tasks[k]})
	}
	return TaskList{entries: entries}
}

// Entries returns the ordered entries.
func (l TaskList) Entries() []TaskEntry {
	clone := make([]TaskEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
