package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/foundry/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case TaskStartMsg:
		k := m.ensureTask(msg.Project, msg.TaskID)
		run := m.tasks[k]
		run.Status = model.StatusRunning
		m.tasks[k] = run
		return m, nil
	case TaskFinishMsg:
		if msg.Run.TaskID == "" {
			return m, nil
		}
		k := m.ensureTask(msg.Run.Project, msg.Run.TaskID)
		if !m.tasks[k].Status.IsTerminal() {
			m.completed++
		}
		m.tasks[k] = msg.Run
		return m, nil
	case BuildDoneMsg:
		m.finished = true
		m.success = msg.Success
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
