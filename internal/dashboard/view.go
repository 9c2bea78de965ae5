package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current polled state of the runner.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, titleStyle.Render("pipelined • runner"))

	sections = append(sections, sectionStyle.Render("Running"))
	if len(m.running) == 0 {
		sections = append(sections, pendingStyle.Render(" (idle)"))
	} else {
		for _, id := range m.running {
			sections = append(sections, fmt.Sprintf(" %s %s", m.spinner.View(), id))
		}
	}

	sections = append(sections, sectionStyle.Render("Recent jobs"))
	if len(m.log) == 0 {
		sections = append(sections, pendingStyle.Render(" (none yet)"))
	} else {
		for i := len(m.log) - 1; i >= 0; i-- {
			entry := m.log[i]
			line := fmt.Sprintf(" %s %s", stateIcon(entry.State), entry.JobID)
			if strings.TrimSpace(entry.Detail) != "" {
				line = fmt.Sprintf("%s: %s", line, entry.Detail)
			}
			sections = append(sections, line)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func stateIcon(state string) string {
	switch state {
	case "success":
		return successStyle.Render("✓")
	case "failed":
		return failureStyle.Render("✗")
	case "builderror":
		return failureStyle.Render("⚠")
	default:
		return pendingStyle.Render("…")
	}
}
