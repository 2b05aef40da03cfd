package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RunWithSpinner shows label beside a spinner on stderr until fn returns.
// Off a terminal fn just runs. Ctrl+C cancels fn's context and yields
// context.Canceled.
func RunWithSpinner(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if !IsInteractive() {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newWaitModel(label, func() tea.Msg { return taskDoneMsg{err: fn(ctx)} })
	final, err := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("spinner: %w", err)
	}
	return final.(waitModel).result()
}

type taskDoneMsg struct{ err error }

// waitModel animates until the task command reports back or the user
// interrupts.
type waitModel struct {
	spin        spinner.Model
	label       string
	task        tea.Cmd
	finished    bool
	interrupted bool
	err         error
}

func newWaitModel(label string, task tea.Cmd) waitModel {
	return waitModel{
		spin:  spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(AccentStyle)),
		label: label,
		task:  task,
	}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.task)
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.finished, m.err = true, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.finished || m.interrupted {
		return ""
	}
	return m.spin.View() + " " + m.label + "\n"
}

func (m waitModel) result() error {
	if m.interrupted {
		return context.Canceled
	}
	return m.err
}
