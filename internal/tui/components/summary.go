package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Total     int
	Completed int
	Finished  bool
	Success   bool
	Cancelled bool
}

// Summary renders a textual build summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Tasks: %d/%d finished", s.data.Completed, s.data.Total))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Build interrupted")
	case s.data.Finished && s.data.Success:
		lines = append(lines, "BUILD SUCCESSFUL")
	case s.data.Finished:
		lines = append(lines, "BUILD FAILED")
	}

	return strings.Join(lines, "\n")
}
