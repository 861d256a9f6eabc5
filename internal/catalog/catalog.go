package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/project"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// Catalog stores declared tasks in declaration order.
type Catalog struct {
	mu    sync.RWMutex
	tasks []*Task
	next  int
	log   *logger.Logger
}

// New creates an empty catalog.
func New(log *logger.Logger) *Catalog {
	return &Catalog{log: log}
}

// DeclareTask adds a plain task.
func (c *Catalog) DeclareTask(task Task) (*Task, error) {
	task.Incremental = nil
	return c.declare(task)
}

// DeclareIncrementalTask adds a task the executor skips when fingerprints are unchanged.
func (c *Catalog) DeclareIncrementalTask(task Task, incremental Incremental) (*Task, error) {
	if incremental.Input == nil {
		return nil, foundryerrors.NewConfigurationError(foundryerrors.KindInvalidTask, qualified(task), "incremental task needs an input fingerprint")
	}
	task.Incremental = &incremental
	return c.declare(task)
}

// VariantBody builds the body of one variant of a task.
type VariantBody func(v project.Variant) Body

// VariantIncremental builds the fingerprint functions of one variant of a task.
type VariantIncremental func(v project.Variant) Incremental

// DeclareVariantTasks expands template into one task per variant. Each copy keeps
// the template's unqualified run-before and run-after references, which resolve
// against the matching variant of the referenced task. With no variants a single
// unvariant task is declared. incremental may be nil. Either every variant is
// declared or none is.
func (c *Catalog) DeclareVariantTasks(template Task, variants []project.Variant, body VariantBody, incremental VariantIncremental) ([]*Task, error) {
	if len(variants) == 0 {
		variants = []project.Variant{{}}
	}

	batch := make([]Task, 0, len(variants))
	for _, v := range variants {
		task := template
		task.Variant = v
		task.RunBefore = append([]string(nil), template.RunBefore...)
		task.RunAfter = append([]string(nil), template.RunAfter...)
		task.Incremental = nil
		if body != nil {
			task.Body = body(v)
		}
		if incremental != nil {
			inc := incremental(v)
			if inc.Input == nil {
				return nil, foundryerrors.NewConfigurationError(foundryerrors.KindInvalidTask, qualified(task), "incremental task needs an input fingerprint")
			}
			task.Incremental = &inc
		}
		if err := validate(task); err != nil {
			return nil, err
		}
		batch = append(batch, task)
	}
	return c.store(batch)
}

func (c *Catalog) declare(task Task) (*Task, error) {
	if err := validate(task); err != nil {
		return nil, err
	}
	stored, err := c.store([]Task{task})
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

func validate(task Task) error {
	if task.Plugin == "" || task.Name == "" {
		return foundryerrors.NewConfigurationError(foundryerrors.KindInvalidTask, qualified(task), "task needs a plugin and a name")
	}
	if task.Body == nil {
		return foundryerrors.NewConfigurationError(foundryerrors.KindInvalidTask, qualified(task), "task has no body")
	}
	return nil
}

// store checks the whole batch for conflicts, against the catalog and within
// itself, before adding any of it.
func (c *Catalog) store(batch []Task) ([]*Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range batch {
		task := &batch[i]
		for _, existing := range c.tasks {
			if conflicts(existing, task) {
				return nil, duplicate(task)
			}
		}
		for j := 0; j < i; j++ {
			if conflicts(&batch[j], task) {
				return nil, duplicate(task)
			}
		}
	}

	stored := make([]*Task, 0, len(batch))
	for _, task := range batch {
		task.seq = c.next
		c.next++
		t := task
		c.tasks = append(c.tasks, &t)
		stored = append(stored, &t)
		c.log.Debugf("declared task %s (project=%q variant=%s)", t.ID(), t.Project, t.Variant)
	}
	return stored, nil
}

func duplicate(task *Task) error {
	return foundryerrors.NewConfigurationError(
		foundryerrors.KindDuplicateTask,
		task.ID(),
		fmt.Sprintf("task declared twice by plugin %s", task.Plugin),
	)
}

// conflicts reports whether two tasks share (plugin, variant, name) in an overlapping scope.
func conflicts(a, b *Task) bool {
	if a.Plugin != b.Plugin || a.Name != b.Name || a.Variant != b.Variant {
		return false
	}
	return a.Project == "" || b.Project == "" || a.Project == b.Project
}

func qualified(task Task) string {
	if task.Plugin == "" {
		return task.FullName()
	}
	return task.ID()
}

// TasksFor returns the tasks visible to p in declaration order. accepts filters by
// owning plugin name; nil accepts every plugin.
func (c *Catalog) TasksFor(p *project.Project, accepts func(pluginName string) bool) []*Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Task, 0, len(c.tasks))
	for _, task := range c.tasks {
		if !task.AppliesTo(p.Name) {
			continue
		}
		if accepts != nil && !accepts(task.Plugin) {
			continue
		}
		out = append(out, task)
	}
	return out
}

// Len returns the number of declared tasks.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

// TaskInfo is one row of the task report.
type TaskInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PluginTasks groups a plugin's tasks for the task report.
type PluginTasks struct {
	Plugin string     `json:"plugin"`
	Tasks  []TaskInfo `json:"tasks"`
}

// List groups declared task names by plugin. Plugins are sorted by name, tasks keep
// declaration order, and a name declared for several projects is listed once.
func (c *Catalog) List() []PluginTasks {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byPlugin := make(map[string]*PluginTasks)
	seen := make(map[string]bool)
	for _, task := range c.tasks {
		if seen[task.ID()] {
			continue
		}
		seen[task.ID()] = true

		group, ok := byPlugin[task.Plugin]
		if !ok {
			group = &PluginTasks{Plugin: task.Plugin}
			byPlugin[task.Plugin] = group
		}
		group.Tasks = append(group.Tasks, TaskInfo{Name: task.FullName(), Description: task.Description})
	}

	out := make([]PluginTasks, 0, len(byPlugin))
	for _, group := range byPlugin {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plugin < out[j].Plugin })
	return out
}
