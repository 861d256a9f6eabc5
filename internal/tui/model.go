// Package tui renders live build progress with Bubbletea.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/foundry/internal/engine"
	"github.com/alexisbeaulieu97/foundry/internal/model"
)

// TaskStartMsg indicates a task body started.
type TaskStartMsg struct {
	Project string
	TaskID  string
	Time    time.Time
}

// TaskFinishMsg reports that a task reached a terminal state.
type TaskFinishMsg struct {
	Run model.TaskRun
}

// BuildDoneMsg is sent once the whole invocation is over.
type BuildDoneMsg struct {
	Success bool
}

type tickMsg struct{}

// Model contains the Bubbletea state for the build progress view.
type Model struct {
	title     string
	tasks     map[string]model.TaskRun
	order     []string
	total     int
	completed int
	finished  bool
	success   bool
	cancelled bool
}

func key(projectName, taskID string) string {
	return projectName + " " + taskID
}

// NewModel tracks every task of plans, in plan order.
func NewModel(title string, plans []*engine.Plan) Model {
	m := Model{
		title: title,
		tasks: make(map[string]model.TaskRun),
	}
	for _, plan := range plans {
		if plan == nil {
			continue
		}
		for _, node := range plan.Tasks {
			m.ensureTask(plan.Project, node.ID)
		}
	}
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalTasks returns the number of tracked tasks.
func (m Model) TotalTasks() int {
	return m.total
}

// CompletedTasks returns the number of tasks in a terminal state.
func (m Model) CompletedTasks() int {
	return m.completed
}

// IsFinished reports whether the build is over.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the view.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensureTask(projectName, taskID string) string {
	k := key(projectName, taskID)
	if _, exists := m.tasks[k]; !exists {
		m.tasks[k] = model.TaskRun{Project: projectName, TaskID: taskID, Status: model.StatusPending}
		m.order = append(m.order, k)
		m.total++
	}
	return k
}
