// Package dashboard is a bubbletea TUI over a running internal/runner.Runner:
// the same charmbracelet/bubbletea + charmbracelet/lipgloss stack and
// tick-driven poll model, applied to the runner's job log and running-job
// set instead of a step DAG.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pipelined/pipelined/internal/runner"
)

type tickMsg struct{}

// Model is the Bubbletea state for the runner dashboard.
type Model struct {
	r *runner.Runner

	running []string
	log     []runner.JobLogEntry

	spinner spinner.Model

	pollInterval time.Duration
	quitting     bool
}

// New constructs a dashboard model polling r every pollInterval.
func New(r *runner.Runner, pollInterval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return Model{r: r, pollInterval: pollInterval, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(m.pollInterval))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{} })
}
