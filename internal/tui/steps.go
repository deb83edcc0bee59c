// Package tui shows progress for CLI commands that wait on the core.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/corebridge/corebridge/internal/ui"
)

// Step is one call shown with a spinner. Run may call note to replace the
// text next to the spinner; the last note becomes the completed line.
type Step struct {
	Title string
	Run   func(ctx context.Context, note func(string)) error
}

type (
	stepDoneMsg struct {
		index int
		err   error
	}
	noteMsg string
)

type progress struct {
	ctx     context.Context
	cancel  context.CancelFunc
	steps   []Step
	current int
	done    []string
	text    string
	spinner spinner.Model
	err     error
	program *tea.Program
}

func (m *progress) Init() tea.Cmd {
	m.text = m.steps[0].Title
	return tea.Batch(m.spinner.Tick, m.run(0))
}

func (m *progress) run(i int) tea.Cmd {
	step := m.steps[i]
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = stepDoneMsg{index: i, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		note := func(s string) { m.program.Send(noteMsg(s)) }
		return stepDoneMsg{index: i, err: step.Run(m.ctx, note)}
	}
}

func (m *progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.err = context.Canceled
			return m, tea.Quit
		}
	case noteMsg:
		m.text = string(msg)
	case stepDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.done = append(m.done, m.text)
		m.current++
		if m.current == len(m.steps) {
			return m, tea.Quit
		}
		m.text = m.steps[m.current].Title
		return m, m.run(m.current)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *progress) View() string {
	var b strings.Builder
	for _, line := range m.done {
		b.WriteString(ui.StepOK(line) + "\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(ui.StepFail(m.text) + "\n")
	case m.current < len(m.steps):
		b.WriteString(m.spinner.View() + " " + m.text + "\n")
	}
	return b.String()
}

// RunSteps runs steps in order, animating a spinner on a terminal and
// printing one line per step otherwise. It stops at the first error.
func RunSteps(ctx context.Context, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlain(ctx, os.Stdout, steps)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.Yellow)

	m := &progress{ctx: ctx, cancel: cancel, steps: steps, spinner: s}
	m.program = tea.NewProgram(m)
	result, err := m.program.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if p, ok := result.(*progress); ok && p.err != nil {
		return p.err
	}
	return nil
}

func runPlain(ctx context.Context, w io.Writer, steps []Step) error {
	for _, step := range steps {
		text := step.Title
		if err := step.Run(ctx, func(s string) { text = s }); err != nil {
			_, _ = fmt.Fprintln(w, ui.StepFail(text))
			return err
		}
		_, _ = fmt.Fprintln(w, ui.StepOK(text))
	}
	return nil
}
