package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("foundry • %s", m.displayTitle())))

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewTaskList(m.order, m.tasks).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Tasks"), renderTaskEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Finished:  m.finished,
		Success:   m.success,
		Cancelled: m.cancelled,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderTaskEntries(entries []components.TaskEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		run := entry.Run
		line := fmt.Sprintf(" %s %s %s", StatusIcon(run.Status), projectStyle.Render(run.Project), run.TaskID)
		if run.Status.IsTerminal() {
			line = fmt.Sprintf("%s %s", line, skippedStyle.Render(run.Status.Label()))
		}
		if run.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, run.Duration.Truncate(10*time.Millisecond))
		}
		if run.Status == model.StatusFailed && strings.TrimSpace(run.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, failureStyle.Render(run.Message))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) displayTitle() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "build"
}

// StatusIcon returns the glyph representing a task status.
func StatusIcon(status model.Status) string {
	switch status {
	case model.StatusSucceeded:
		return successStyle.Render("✓")
	case model.StatusUpToDate:
		return upToDateStyle.Render("≡")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
