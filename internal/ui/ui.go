// Package ui renders corebridge CLI output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MaxWidth caps the width of boxed output.
const MaxWidth = 80

var (
	Green  = lipgloss.Color("2")
	Red    = lipgloss.Color("1")
	Yellow = lipgloss.Color("3")
	Subtle = lipgloss.Color("8")
)

// State is what a status dot shows.
type State int

const (
	StateRunning     State = iota // green
	StateUnreachable              // red
	StateStopped                  // yellow
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateUnreachable:
		return "unreachable"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1).
			MarginBottom(1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	keyStyle   = lipgloss.NewStyle().Foreground(Subtle)
)

func mark(c lipgloss.Color, glyph, msg string) string {
	return lipgloss.NewStyle().Foreground(c).Render(glyph) + " " + msg
}

// Dot returns a colored ● for s.
func Dot(s State) string {
	switch s {
	case StateRunning:
		return lipgloss.NewStyle().Foreground(Green).Render("●")
	case StateUnreachable:
		return lipgloss.NewStyle().Foreground(Red).Render("●")
	case StateStopped:
		return lipgloss.NewStyle().Foreground(Yellow).Render("●")
	}
	return "●"
}

// Status renders a dot followed by the state name.
func Status(s State) string {
	return Dot(s) + " " + s.String()
}

// BotState maps the bot flag onto a status line.
func BotState(running bool) string {
	if running {
		return Status(StateRunning)
	}
	return Status(StateStopped)
}

// Section renders content inside a rounded box with a bold title.
func Section(title, content string, width int) string {
	width = min(width, MaxWidth)
	return sectionStyle.Width(max(width-4, 40)).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

func StepOK(msg string) string { return mark(Green, "✔", msg) }
func StepRun(msg string) string { return mark(Yellow, "○", msg) }
func StepInfo(msg string) string { return mark(Subtle, "●", msg) }
func StepFail(msg string) string { return mark(Red, "✘", msg) }

// Warn and Error are written to stderr by the caller.
func Warn(msg string) string { return mark(Yellow, "⚠", msg) }
func Error(msg string) string { return mark(Red, "✘", msg) }

// Rows renders aligned key: value lines, keys dimmed.
func Rows(pairs [][2]string) string {
	w := 0
	for _, p := range pairs {
		w = max(w, len(p[0])+1)
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		key := fmt.Sprintf("%-*s", w, p[0]+":")
		lines = append(lines, keyStyle.Render(key)+" "+p[1])
	}
	return strings.Join(lines, "\n")
}
