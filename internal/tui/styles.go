package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/pomo/internal/timer"
)

var (
	focusColor  = lipgloss.Color("#F87171") // red-400
	breakColor  = lipgloss.Color("#10B981") // green
	pausedColor = lipgloss.Color("#F59E0B") // amber
	idleColor   = lipgloss.Color("#A78BFA") // violet-400
	mutedColor  = lipgloss.Color("#9CA3AF")
	borderColor = lipgloss.Color("#6B7280")

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 4)

	clockStyle = lipgloss.NewStyle().Bold(true)

	labelStyle = lipgloss.NewStyle().Bold(true)

	statsStyle = lipgloss.NewStyle().Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().Foreground(focusColor)

	helpStyle = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
)

// stateColor is the accent for a timer state.
func stateColor(s timer.State) lipgloss.Color {
	switch {
	case s.Paused():
		return pausedColor
	case s == timer.StateFocusRunning:
		return focusColor
	case s == timer.StateBreakRunning:
		return breakColor
	default:
		return idleColor
	}
}
