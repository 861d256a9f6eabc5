package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/foundry/internal/model"
)

// Sender is the part of *tea.Program the observer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramObserver forwards executor events to a running program.
type ProgramObserver struct {
	Program Sender
}

// OnTaskStart implements engine.Observer.
func (o ProgramObserver) OnTaskStart(projectName, taskID string) {
	o.Program.Send(TaskStartMsg{Project: projectName, TaskID: taskID, Time: time.Now()})
}

// OnTaskFinish implements engine.Observer.
func (o ProgramObserver) OnTaskFinish(run model.TaskRun) {
	o.Program.Send(TaskFinishMsg{Run: run})
}
